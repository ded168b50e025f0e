// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/lmsbridge/internal/config"
	"github.com/tomtom215/lmsbridge/internal/lms"
	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/logging"
	"github.com/tomtom215/lmsbridge/internal/moodle"
	"github.com/tomtom215/lmsbridge/internal/resilience"
)

// openTokenStore opens the configured token backend. The returned func
// releases it.
func openTokenStore(cfg *config.TokenStoreConfig) (resilience.TokenStore, func() error, error) {
	switch cfg.Backend {
	case resilience.TokenStoreBadger:
		store, err := resilience.OpenBadgerTokenStore(cfg.Path, cfg.KeyPrefix)
		if err != nil {
			return nil, nil, err
		}
		logging.Info().Str("path", cfg.Path).Msg("Token store: BadgerDB")
		return store, store.Close, nil

	case resilience.TokenStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := resilience.NewRedisTokenStore(client, cfg.KeyPrefix)
		logging.Info().Str("addr", cfg.RedisAddr).Msg("Token store: Redis")
		return store, store.Close, nil

	case resilience.TokenStoreMemory, "":
		logging.Info().Msg("Token store: in-memory (tokens are lost on restart)")
		return resilience.NewMemoryTokenStore(), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown token store backend %q", cfg.Backend)
	}
}

// httpClients builds the API and upload transports shared by the REST connectors.
func httpClients(cfg *config.HTTPClientConfig) (api, upload *resilience.RobustClient) {
	opts := resilience.HTTPClientOptions{
		MaxRetries:          cfg.MaxRetries,
		BackoffFactor:       cfg.BackoffFactor,
		Timeout:             cfg.Timeout,
		RateLimit:           cfg.RateLimit,
		RateBurst:           cfg.RateBurst,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		UserAgent:           cfg.UserAgent,
	}
	api = resilience.NewRobustClient(opts)

	opts.Timeout = cfg.UploadTimeout
	upload = resilience.NewRobustClient(opts)
	return api, upload
}

// buildConnectors creates a connector for every platform with complete
// credentials. A platform that fails to initialise is a configuration error.
func buildConnectors(cfg *config.Config, tokens *resilience.TokenManager) ([]lms.Connector, error) {
	apiClient, uploadClient := httpClients(&cfg.HTTPClient)
	var connectors []lms.Connector

	if cfg.Moodle.Configured() {
		client, err := moodle.New(moodle.Config{
			BaseURL:             cfg.Moodle.URL,
			Token:               cfg.Moodle.Token,
			Timeout:             cfg.Moodle.Timeout(),
			UploadTimeout:       cfg.HTTPClient.UploadTimeout,
			Debug:               cfg.Moodle.Debug,
			UserAgent:           cfg.HTTPClient.UserAgent,
			UnavailableCacheTTL: cfg.Moodle.UnavailableCacheTTL,
		})
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, lms.NewMoodleConnector(client))
	}

	if cfg.Canvas.Configured() {
		conn, err := lms.NewCanvasConnector(lms.CanvasConfig{
			BaseURL:   cfg.Canvas.URL,
			Token:     cfg.Canvas.Token,
			AccountID: cfg.Canvas.AccountID,
			HTTP:      apiClient,
			Upload:    uploadClient,
		})
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, conn)
	}

	if cfg.Sakai.Configured() {
		conn, err := lms.NewSakaiConnector(lms.SakaiConfig{
			BaseURL:    cfg.Sakai.URL,
			Username:   cfg.Sakai.Username,
			Password:   cfg.Sakai.Password,
			SessionTTL: cfg.Sakai.SessionTTL,
			HTTP:       apiClient,
			Upload:     uploadClient,
			Tokens:     tokens,
		})
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, conn)
	}

	if cfg.Chamilo.Configured() {
		conn, err := lms.NewChamiloConnector(lms.ChamiloConfig{
			BaseURL:  cfg.Chamilo.URL,
			Username: cfg.Chamilo.Username,
			APIKey:   cfg.Chamilo.APIKey,
			HTTP:     apiClient,
		})
		if err != nil {
			return nil, err
		}
		connectors = append(connectors, conn)
	}

	for _, c := range connectors {
		logging.Info().Str("platform", string(c.Platform())).Msg("LMS connector ready")
	}
	return connectors, nil
}

// serviceOptions maps the resilience settings onto lms.Options, keeping the
// default classifiers.
func serviceOptions(cfg *config.Config) lms.Options {
	opts := lms.DefaultOptions()

	r := cfg.Resilience
	if r.RetryMaxAttempts > 0 {
		opts.Retry.MaxAttempts = r.RetryMaxAttempts
	}
	if r.RetryBackoff > 0 {
		opts.Retry.BackoffFactor = r.RetryBackoff
	}
	if r.RetryMaxDelay > 0 {
		opts.Retry.MaxDelay = r.RetryMaxDelay
	}
	opts.Retry.Exponential = r.RetryExponential
	opts.Retry.Retryable = lmserr.IsTransient

	if r.BreakerThreshold > 0 {
		opts.Breaker.FailureThreshold = r.BreakerThreshold
	}
	if r.BreakerRecovery > 0 {
		opts.Breaker.RecoveryTimeout = r.BreakerRecovery
	}
	if cfg.HTTPClient.TestTimeout > 0 {
		opts.TestTimeout = cfg.HTTPClient.TestTimeout
	}
	return opts
}
