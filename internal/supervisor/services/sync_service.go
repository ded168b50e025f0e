// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package services

import (
	"context"
	"fmt"
)

// Scheduler is the Start/Stop lifecycle of the course sync scheduler.
// Satisfied by *sync.Manager.
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService runs the course sync scheduler under supervision.
//
// Serve starts the scheduler, blocks until ctx is canceled and then stops it.
// A failed Start is returned so suture restarts the service with backoff.
type SchedulerService struct {
	scheduler Scheduler
	name      string
}

// NewSchedulerService wraps a scheduler.
//
//	mgr := sync.NewManager(svc, cfg.Sync)
//	tree.AddSyncService(services.NewSchedulerService(mgr))
func NewSchedulerService(scheduler Scheduler) *SchedulerService {
	return &SchedulerService{
		scheduler: scheduler,
		name:      "course-sync-scheduler",
	}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start course sync scheduler: %w", err)
	}

	<-ctx.Done()

	// Stop joins the loop; a timeout here means a pass is still stuck in I/O.
	if err := s.scheduler.Stop(); err != nil {
		return fmt.Errorf("stop course sync scheduler: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for suture's event log.
func (s *SchedulerService) String() string {
	return s.name
}
