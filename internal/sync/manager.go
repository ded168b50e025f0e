// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

/*
manager.go - Course Sync Manager Lifecycle

The manager runs one background goroutine that syncs every configured
platform, then waits for the sync interval or a stop signal.

Lifecycle Methods:
  - NewManager(): Initialize manager with a Syncer and timing configuration
  - Start(): Launch the loop (first pass runs immediately)
  - Stop(): Signal the loop and join it within the stop timeout
  - ForceSync()/ForceSyncAll(): Synchronous sync on the caller's goroutine
  - SetSyncInterval(): Change the wait between passes (minimum 60s)
  - Status(): Snapshot for the ops API

Thread Safety:
  - mu: Protects running, interval and lastSync; never held during a sync
  - Syncs of one platform are serialized by the Syncer
*/

//nolint:staticcheck // File documentation, not package doc
package sync

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/tomtom215/lmsbridge/internal/config"
	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/logging"
	"github.com/tomtom215/lmsbridge/internal/metrics"
	"github.com/tomtom215/lmsbridge/internal/models"
)

// Syncer performs one course sync per platform. lms.Service implements it.
type Syncer interface {
	Platforms() []models.Platform
	Sync(ctx context.Context, p models.Platform) (models.SyncResult, error)
}

// ErrNotRunning is returned by Stop when no loop was started since the last Stop.
var ErrNotRunning = errors.New("sync manager is not running")

// ErrAlreadyRunning is returned by Start when the loop is active.
var ErrAlreadyRunning = errors.New("sync manager is already running")

// Outcome is the result of syncing one platform during a full pass.
type Outcome struct {
	Platform models.Platform    `json:"platform"`
	Result   *models.SyncResult `json:"result,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// Manager schedules periodic course syncs.
type Manager struct {
	syncer       Syncer
	errorBackoff time.Duration
	stopTimeout  time.Duration
	now          func() time.Time

	mu       sync.RWMutex
	running  bool
	interval time.Duration
	lastSync map[models.Platform]time.Time
	stopChan chan struct{}
	done     chan struct{}

	// reset wakes a waiting loop after the interval changed.
	reset chan struct{}
}

// NewManager creates a stopped manager. Zero durations in cfg fall back to
// 5m interval, 60s error backoff and 10s stop timeout.
func NewManager(syncer Syncer, cfg config.SyncConfig) *Manager {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = 60 * time.Second
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 10 * time.Second
	}

	logging.Info().
		Dur("interval", cfg.Interval).
		Dur("error_backoff", cfg.ErrorBackoff).
		Msg("Sync manager config loaded")

	return &Manager{
		syncer:       syncer,
		errorBackoff: cfg.ErrorBackoff,
		stopTimeout:  cfg.StopTimeout,
		now:          time.Now,
		interval:     cfg.Interval,
		lastSync:     make(map[models.Platform]time.Time),
		reset:        make(chan struct{}, 1),
	}
}

// Start launches the sync loop. The loop exits when Stop is called or ctx
// is canceled.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.stopChan = make(chan struct{})
	m.done = make(chan struct{})
	stop, done := m.stopChan, m.done
	m.mu.Unlock()

	logging.Info().Strs("platforms", platformNames(m.syncer.Platforms())).Msg("Starting sync manager...")
	go m.loop(ctx, stop, done)
	return nil
}

// Stop signals the loop and waits up to the stop timeout for it to exit.
// A loop still inside a sync after the timeout is abandoned and an error is
// returned; it exits on its own once the sync returns. Stopping a loop that
// already ended with its context returns nil.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		ended := m.done != nil
		m.stopChan, m.done = nil, nil
		m.mu.Unlock()
		if ended {
			return nil
		}
		return ErrNotRunning
	}
	m.running = false
	close(m.stopChan)
	done := m.done
	m.stopChan, m.done = nil, nil
	m.mu.Unlock()

	logging.Info().Msg("Stopping sync manager...")

	select {
	case <-done:
		logging.Info().Msg("Sync manager stopped")
		return nil
	case <-time.After(m.stopTimeout):
		logging.Warn().Dur("timeout", m.stopTimeout).Msg("Sync loop did not stop in time")
		return fmt.Errorf("sync loop did not stop within %s", m.stopTimeout)
	}
}

// IsRunning reports whether the loop is live. It turns false on Stop or when
// the loop's context ends.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Manager) loop(ctx context.Context, stop <-chan struct{}, done chan struct{}) {
	defer close(done)
	defer func() {
		m.mu.Lock()
		if m.done == done {
			m.running = false
		}
		m.mu.Unlock()
	}()

	for {
		wait := m.safePass(ctx)

		timer := time.NewTimer(wait)
	waiting:
		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-stop:
				timer.Stop()
				return
			case <-m.reset:
				timer.Stop()
				timer = time.NewTimer(m.Interval())
			case <-timer.C:
				break waiting
			}
		}
	}
}

// safePass runs one pass and returns how long to wait before the next. A
// panic escaping the pass is logged and answered with the error backoff.
func (m *Manager) safePass(ctx context.Context) (wait time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			metrics.SyncLoopPanics.Inc()
			logging.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Dur("backoff", m.errorBackoff).
				Msg("Sync loop panic recovered")
			wait = m.errorBackoff
		}
	}()

	m.syncAll(ctx)
	return m.Interval()
}

// syncAll syncs every configured platform in order. Per-platform failures
// are logged and do not stop the pass.
func (m *Manager) syncAll(ctx context.Context) []Outcome {
	ctx = logging.ContextWithNewCorrelationID(ctx)
	platforms := m.syncer.Platforms()
	outcomes := make([]Outcome, 0, len(platforms))

	for _, p := range platforms {
		if ctx.Err() != nil {
			break
		}
		res, err := m.syncer.Sync(ctx, p)
		if err != nil {
			logging.Ctx(ctx).Error().Err(err).Str("platform", string(p)).Msg("Platform sync failed, continuing")
			outcomes = append(outcomes, Outcome{Platform: p, Error: err.Error()})
			continue
		}
		m.recordSync(p)
		outcomes = append(outcomes, Outcome{Platform: p, Result: &res})
	}
	return outcomes
}

func (m *Manager) recordSync(p models.Platform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastSync[p] = m.now()
}

// ForceSync syncs platform p immediately on the caller's goroutine. Errors
// are returned unchanged.
func (m *Manager) ForceSync(ctx context.Context, p models.Platform) (models.SyncResult, error) {
	if !m.configured(p) {
		e := lmserr.Newf(lmserr.KindValidation, "unsupported LMS type: %s", p)
		e.Code = "unsupported_lms"
		return models.SyncResult{}, e
	}
	res, err := m.syncer.Sync(ctx, p)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("platform", string(p)).Msg("Force sync failed")
		return models.SyncResult{}, err
	}
	m.recordSync(p)
	logging.Ctx(ctx).Info().Str("platform", string(p)).Int("synced", res.Synced).Int("updated", res.Updated).
		Msg("Force sync completed")
	return res, nil
}

// ForceSyncAll runs a full pass immediately and reports each platform.
func (m *Manager) ForceSyncAll(ctx context.Context) []Outcome {
	outcomes := m.syncAll(ctx)
	logging.Ctx(ctx).Info().Int("platforms", len(outcomes)).Msg("Force sync completed for all configured LMS platforms")
	return outcomes
}

func (m *Manager) configured(p models.Platform) bool {
	for _, c := range m.syncer.Platforms() {
		if c == p {
			return true
		}
	}
	return false
}

// Interval returns the current wait between passes.
func (m *Manager) Interval() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.interval
}

// SetSyncInterval changes the wait between passes. A waiting loop restarts
// its wait with the new value.
func (m *Manager) SetSyncInterval(d time.Duration) error {
	if d < config.MinSyncInterval {
		e := lmserr.Newf(lmserr.KindValidation, "sync interval must be at least %d seconds", int(config.MinSyncInterval.Seconds()))
		e.Code = "min"
		return e
	}

	m.mu.Lock()
	m.interval = d
	m.mu.Unlock()

	select {
	case m.reset <- struct{}{}:
	default:
	}
	logging.Info().Dur("interval", d).Msg("Sync interval updated")
	return nil
}

// Status returns a snapshot without waiting for a running sync.
func (m *Manager) Status() models.SyncStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	last := make(map[models.Platform]time.Time, len(m.lastSync))
	for p, t := range m.lastSync {
		last[p] = t
	}
	return models.SyncStatus{
		IsRunning:           m.running,
		SyncIntervalSeconds: int(m.interval / time.Second),
		LastSync:            last,
		ConfiguredLMS:       m.syncer.Platforms(),
	}
}

func platformNames(ps []models.Platform) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}
