// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/lmsbridge/internal/api"
	"github.com/tomtom215/lmsbridge/internal/config"
	"github.com/tomtom215/lmsbridge/internal/database"
	"github.com/tomtom215/lmsbridge/internal/lms"
	"github.com/tomtom215/lmsbridge/internal/logging"
	"github.com/tomtom215/lmsbridge/internal/resilience"
	"github.com/tomtom215/lmsbridge/internal/supervisor"
	"github.com/tomtom215/lmsbridge/internal/supervisor/services"
	lmssync "github.com/tomtom215/lmsbridge/internal/sync"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Caller:     cfg.Logging.Caller,
		Timestamp:  true,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logging.Close()

	logging.Info().
		Strs("platforms", cfg.ConfiguredPlatforms()).
		Str("db_driver", cfg.Database.Driver).
		Str("token_store", cfg.Tokens.Backend).
		Bool("sync_enabled", cfg.Sync.Enabled).
		Msg("Starting LMSBridge")

	if err := run(cfg); err != nil {
		logging.Error().Err(err).Msg("LMSBridge stopped with error")
		logging.Close()
		os.Exit(1)
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Str("path", cfg.Database.Path).Msg("Database initialized")

	store, closeStore, err := openTokenStore(&cfg.Tokens)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logging.Error().Err(err).Msg("Error closing token store")
		}
	}()
	tokens := resilience.NewTokenManager(store)

	connectors, err := buildConnectors(cfg, tokens)
	if err != nil {
		return err
	}
	if len(connectors) == 0 {
		logging.Warn().Msg("No LMS platform configured; the API will report every platform as unavailable")
	}

	opts := serviceOptions(cfg)
	breakers := resilience.NewCircuitRegistry(opts.Breaker)
	lmsService := lms.NewService(db, breakers, opts, connectors...)
	scheduler := lmssync.NewManager(lmsService, cfg.Sync)

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())

	if gc, ok := store.(services.GarbageCollector); ok {
		tree.AddDataService(services.NewTokenGCService(gc, 0))
	}

	if cfg.Sync.Enabled {
		tree.AddSyncService(services.NewSchedulerService(scheduler))
		logging.Info().Dur("interval", scheduler.Interval()).Msg("Course sync scheduler enabled")
	} else {
		logging.Info().Msg("Course sync scheduler disabled (SYNC_ENABLED=false); forced syncs remain available")
	}

	handler := api.NewHandler(db, scheduler, lmsService, lmsService.Breakers())
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, api.RouterConfigFrom(cfg.Server)),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * time.Minute,
	}
	tree.AddAPIService(services.NewOpsServerService(server, server.Addr, 0))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Dur("shutdown_timeout", tree.Config().ShutdownTimeout).Msg("Starting supervisor tree...")
	var serveErr error
	for err := range tree.ServeBackground(ctx) {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
			serveErr = err
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	return serveErr
}
