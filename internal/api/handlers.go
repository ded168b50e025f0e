// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package api

import (
	"context"
	"time"

	"github.com/tomtom215/lmsbridge/internal/models"
	"github.com/tomtom215/lmsbridge/internal/resilience"
	lmssync "github.com/tomtom215/lmsbridge/internal/sync"
)

// Pinger reports store reachability. Implemented by *database.DB.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Scheduler is the control surface of the course sync scheduler.
// Implemented by *sync.Manager.
type Scheduler interface {
	IsRunning() bool
	Status() models.SyncStatus
	ForceSync(ctx context.Context, p models.Platform) (models.SyncResult, error)
	ForceSyncAll(ctx context.Context) []lmssync.Outcome
	SetSyncInterval(d time.Duration) error
}

// ConnectionTester runs LMS connection tests. Implemented by *lms.Service.
type ConnectionTester interface {
	Platforms() []models.Platform
	TestConnection(ctx context.Context, p models.Platform) models.ConnectionResult
	TestAll(ctx context.Context) []models.ConnectionResult
}

// CircuitReporter exposes circuit breaker state. Implemented by *resilience.CircuitRegistry.
type CircuitReporter interface {
	Status() map[string]resilience.CircuitStatus
}

// Handler serves the operations endpoints.
type Handler struct {
	db        Pinger
	scheduler Scheduler
	lms       ConnectionTester
	circuits  CircuitReporter
	startTime time.Time

	// readyTimeout bounds the store ping of the readiness probe.
	readyTimeout time.Duration
}

// NewHandler creates a handler. Every dependency is required.
func NewHandler(db Pinger, scheduler Scheduler, lms ConnectionTester, circuits CircuitReporter) *Handler {
	return &Handler{
		db:           db,
		scheduler:    scheduler,
		lms:          lms,
		circuits:     circuits,
		startTime:    time.Now(),
		readyTimeout: 2 * time.Second,
	}
}
