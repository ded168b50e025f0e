// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package config

import (
	"fmt"
	"strings"
)

// Validate checks that configuration values are well formed.
// Missing platform credentials are not an error; the platform is simply not configured.
func (c *Config) Validate() error {
	if err := c.validatePlatformURLs(); err != nil {
		return err
	}
	if err := c.validateMoodle(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateResilience(); err != nil {
		return err
	}
	if err := c.validateHTTPClient(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateTokenStore(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

// validatePlatformURLs checks every LMS base URL that has been set.
func (c *Config) validatePlatformURLs() error {
	urls := []struct {
		value string
		env   string
	}{
		{c.Moodle.URL, "MOODLE_URL"},
		{c.Canvas.URL, "CANVAS_URL"},
		{c.Sakai.URL, "SAKAI_URL"},
		{c.Chamilo.URL, "CHAMILO_URL"},
	}
	for _, u := range urls {
		if u.value == "" {
			continue
		}
		if err := validateHTTPURL(u.value, u.env); err != nil {
			return fmt.Errorf("%s is invalid: %w", u.env, err)
		}
	}
	return nil
}

func (c *Config) validateMoodle() error {
	if c.Moodle.TimeoutMS <= 0 {
		return fmt.Errorf("MOODLE_TIMEOUT_MS must be positive, got %d", c.Moodle.TimeoutMS)
	}
	return nil
}

// validateSync enforces the minimum scheduler interval.
func (c *Config) validateSync() error {
	if c.Sync.Interval < MinSyncInterval {
		return fmt.Errorf("SYNC_INTERVAL must be at least %s, got %s", MinSyncInterval, c.Sync.Interval)
	}
	if c.Sync.ErrorBackoff <= 0 {
		return fmt.Errorf("SYNC_ERROR_BACKOFF must be positive")
	}
	if c.Sync.StopTimeout <= 0 {
		return fmt.Errorf("SYNC_STOP_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateResilience() error {
	r := c.Resilience
	if r.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", r.RetryMaxAttempts)
	}
	if r.RetryBackoff < 0 || r.RetryMaxDelay < 0 {
		return fmt.Errorf("RETRY_BACKOFF and RETRY_MAX_DELAY must not be negative")
	}
	if r.BreakerThreshold < 1 {
		return fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must be at least 1, got %d", r.BreakerThreshold)
	}
	if r.BreakerRecovery <= 0 {
		return fmt.Errorf("CIRCUIT_BREAKER_RECOVERY must be positive")
	}
	return nil
}

func (c *Config) validateHTTPClient() error {
	h := c.HTTPClient
	if h.MaxRetries < 0 {
		return fmt.Errorf("HTTP_CLIENT_MAX_RETRIES must not be negative, got %d", h.MaxRetries)
	}
	if h.Timeout <= 0 || h.UploadTimeout <= 0 || h.TestTimeout <= 0 {
		return fmt.Errorf("HTTP_CLIENT_TIMEOUT, HTTP_CLIENT_UPLOAD_TIMEOUT and HTTP_CLIENT_TEST_TIMEOUT must be positive")
	}
	if h.RateLimit < 0 {
		return fmt.Errorf("HTTP_CLIENT_RATE_LIMIT must not be negative")
	}
	if h.RateLimit > 0 && h.RateBurst < 1 {
		return fmt.Errorf("HTTP_CLIENT_RATE_BURST must be at least 1 when HTTP_CLIENT_RATE_LIMIT is set")
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Driver {
	case "duckdb", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be duckdb or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	return nil
}

func (c *Config) validateTokenStore() error {
	switch c.Tokens.Backend {
	case "memory":
		return nil
	case "badger":
		if c.Tokens.Path == "" {
			return fmt.Errorf("TOKEN_STORE_PATH is required when TOKEN_STORE=badger")
		}
		return nil
	case "redis":
		if c.Tokens.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required when TOKEN_STORE=redis")
		}
		return nil
	default:
		return fmt.Errorf("TOKEN_STORE must be memory, badger or redis, got %q", c.Tokens.Backend)
	}
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RateLimitReqs < 0 {
		return fmt.Errorf("RATE_LIMIT_REQS must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal; got %q", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

// ConfiguredPlatforms lists the platforms with complete credentials, in a fixed order.
func (c *Config) ConfiguredPlatforms() []string {
	var out []string
	if c.Moodle.Configured() {
		out = append(out, "moodle")
	}
	if c.Canvas.Configured() {
		out = append(out, "canvas")
	}
	if c.Sakai.Configured() {
		out = append(out, "sakai")
	}
	if c.Chamilo.Configured() {
		out = append(out, "chamilo")
	}
	return out
}
