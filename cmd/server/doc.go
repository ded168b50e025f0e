// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

/*
Package main is the entry point for the LMSBridge server.

LMSBridge keeps a local catalogue of courses in step with one or more
learning management systems (Moodle, Canvas, Sakai and Chamilo), pushes
course content back to them, and exposes a small ops API for health,
sync control and circuit inspection.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("lmsbridge")
	├── DataSupervisor ("data-layer")
	│   └── token-store-gc (badger token store only)
	├── SyncSupervisor ("sync-layer")
	│   └── course-sync-scheduler (SYNC_ENABLED=true)
	└── APISupervisor ("api-layer")
	    └── ops-api-server

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and an optional YAML file
 2. Logging: zerolog, optionally duplicated into a lumberjack-rotated file
 3. Database: DuckDB (default) or SQLite course store
 4. Token store: memory, BadgerDB or Redis
 5. Connectors: one per platform with complete credentials
 6. LMS service: retry and circuit breaker around every sync and write
 7. Sync scheduler: periodic course sync
 8. Ops API: Chi router with request IDs, metrics and rate limiting
 9. Supervisor tree

# Configuration

	# Platforms (configure one or more)
	MOODLE_URL=https://moodle.example.edu
	MOODLE_TOKEN=<webservice token>

	CANVAS_URL=https://canvas.example.edu
	CANVAS_TOKEN=<access token>
	CANVAS_ACCOUNT_ID=1

	SAKAI_URL=https://sakai.example.edu
	SAKAI_USERNAME=admin
	SAKAI_PASSWORD=<password>

	CHAMILO_URL=https://chamilo.example.edu
	CHAMILO_USERNAME=admin
	CHAMILO_API_KEY=<api key>

	# Scheduler
	SYNC_ENABLED=true
	SYNC_INTERVAL=1h             # minimum 60s

	# Storage
	DB_DRIVER=duckdb             # duckdb or sqlite
	TOKEN_STORE=memory           # memory, badger or redis

	# Server
	HTTP_PORT=8080
	LOG_LEVEL=info
	LOG_FORMAT=json

# Signal Handling

SIGINT and SIGTERM cancel the root context. The ops API drains in-flight
requests, the scheduler stops its loop, and any service that does not stop
within the shutdown timeout is reported before exit.

# Usage

	export MOODLE_URL=http://localhost:8000 MOODLE_TOKEN=xxx
	export SYNC_ENABLED=true
	go run ./cmd/server
*/
package main
