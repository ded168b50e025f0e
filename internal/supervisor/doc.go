// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

/*
Package supervisor runs the long-lived LMSBridge services under a suture v4
supervisor tree.

# Layout

	lmsbridge
	├── data-layer
	│   └── token-store-gc (badger token backend only)
	├── sync-layer
	│   └── course-sync-scheduler
	└── api-layer
	    └── ops-api-server

Each layer is its own supervisor with independent failure counting. A service
that returns from Serve is restarted; once FailureThreshold is exceeded the
layer waits FailureBackoff before trying again.

# Usage

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddSyncService(services.NewSchedulerService(manager))
	tree.AddAPIService(services.NewOpsServerService(srv, addr, 10*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor stopped")
	}

Supervisor events go through sutureslog into the zerolog-backed slog logger.
*/
package supervisor
