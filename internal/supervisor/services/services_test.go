// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package services

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*SchedulerService)(nil)
	_ suture.Service = (*OpsServerService)(nil)
	_ suture.Service = (*TokenGCService)(nil)
)

type fakeScheduler struct {
	startErr error
	stopErr  error
	started  atomic.Bool
	stopped  atomic.Bool
}

func (f *fakeScheduler) Start(context.Context) error {
	if f.startErr != nil {
		return f.startErr
	}
	f.started.Store(true)
	return nil
}

func (f *fakeScheduler) Stop() error {
	f.stopped.Store(true)
	return f.stopErr
}

type fakeServer struct {
	listenErr error
	stopCh    chan struct{}
	listening chan struct{}
	shutdowns atomic.Int32
}

func newFakeServer() *fakeServer {
	return &fakeServer{stopCh: make(chan struct{}), listening: make(chan struct{}, 1)}
}

func (f *fakeServer) ListenAndServe() error {
	f.listening <- struct{}{}
	if f.listenErr != nil {
		return f.listenErr
	}
	<-f.stopCh
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(context.Context) error {
	f.shutdowns.Add(1)
	close(f.stopCh)
	return nil
}

type fakeGC struct {
	runs atomic.Int32
	err  error
}

func (f *fakeGC) CollectGarbage() error {
	f.runs.Add(1)
	return f.err
}

func serveAsync(ctx context.Context, svc suture.Service) <-chan error {
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()
	return done
}

func waitResult(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
		return nil
	}
}

func TestSchedulerService(t *testing.T) {
	t.Run("starts and stops the scheduler", func(t *testing.T) {
		sched := &fakeScheduler{}
		svc := NewSchedulerService(sched)

		ctx, cancel := context.WithCancel(context.Background())
		done := serveAsync(ctx, svc)

		deadline := time.Now().Add(time.Second)
		for !sched.started.Load() && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		if !sched.started.Load() {
			t.Fatal("scheduler was not started")
		}

		cancel()
		if err := waitResult(t, done); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
		if !sched.stopped.Load() {
			t.Error("scheduler was not stopped")
		}
	})

	t.Run("returns start failure for restart", func(t *testing.T) {
		startErr := errors.New("already running")
		svc := NewSchedulerService(&fakeScheduler{startErr: startErr})

		err := svc.Serve(context.Background())
		if !errors.Is(err, startErr) {
			t.Errorf("Serve = %v, want wrapped start error", err)
		}
	})

	t.Run("reports stop timeout", func(t *testing.T) {
		stopErr := errors.New("stop timed out")
		svc := NewSchedulerService(&fakeScheduler{stopErr: stopErr})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := svc.Serve(ctx); !errors.Is(err, stopErr) {
			t.Errorf("Serve = %v, want wrapped stop error", err)
		}
	})

	t.Run("names itself", func(t *testing.T) {
		if got := NewSchedulerService(&fakeScheduler{}).String(); got != "course-sync-scheduler" {
			t.Errorf("String() = %q", got)
		}
	})
}

func TestOpsServerService(t *testing.T) {
	t.Run("drains on cancel", func(t *testing.T) {
		srv := newFakeServer()
		svc := NewOpsServerService(srv, "127.0.0.1:0", time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		done := serveAsync(ctx, svc)
		<-srv.listening

		cancel()
		if err := waitResult(t, done); !errors.Is(err, context.Canceled) {
			t.Errorf("Serve = %v, want context.Canceled", err)
		}
		if got := srv.shutdowns.Load(); got != 1 {
			t.Errorf("Shutdown called %d times, want 1", got)
		}
	})

	t.Run("returns listen failure", func(t *testing.T) {
		srv := newFakeServer()
		srv.listenErr = errors.New("address already in use")
		svc := NewOpsServerService(srv, ":80", 0)

		err := svc.Serve(context.Background())
		if !errors.Is(err, srv.listenErr) {
			t.Errorf("Serve = %v, want wrapped listen error", err)
		}
		if svc.drainTimeout != 10*time.Second {
			t.Errorf("drainTimeout = %v, want 10s default", svc.drainTimeout)
		}
	})
}

func TestTokenGCService(t *testing.T) {
	gc := &fakeGC{err: errors.New("disk busy")}
	svc := NewTokenGCService(gc, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := serveAsync(ctx, svc)

	deadline := time.Now().Add(time.Second)
	for gc.runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if gc.runs.Load() < 2 {
		t.Fatalf("gc ran %d times, want at least 2 despite errors", gc.runs.Load())
	}

	cancel()
	if err := waitResult(t, done); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve = %v, want context.Canceled", err)
	}

	if got := NewTokenGCService(gc, 0).interval; got != 10*time.Minute {
		t.Errorf("default interval = %v, want 10m", got)
	}
}
