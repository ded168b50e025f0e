// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

// Package resilience provides the failure-handling primitives wrapped around
// every outbound LMS call: retry with backoff, a keyed circuit breaker
// registry, a session token manager and a robust pooled HTTP client.
//
// All state is owned by explicit objects created in main and injected into
// the components that need them; nothing here is process-global.
//
// Composition for course sync is breaker outermost, retry inside:
//
//	guard := resilience.NewGuard(breakers, "sync_moodle_courses", policy)
//	err := guard.Do(ctx, func(ctx context.Context) error {
//	    return service.syncMoodle(ctx)
//	})
//
// so a burst of retried attempts counts as one failure against the circuit.
package resilience

import (
	"context"
	"math"
	"time"

	"github.com/tomtom215/lmsbridge/internal/logging"
)

// RetryPolicy describes how an operation is retried.
type RetryPolicy struct {
	// Name identifies the operation in logs.
	Name string

	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts int

	// BackoffFactor is the base delay.
	BackoffFactor time.Duration

	// MaxDelay caps any single delay. Zero means uncapped.
	MaxDelay time.Duration

	// Exponential selects factor*2^i delays; otherwise factor*(i+1).
	Exponential bool

	// Retryable classifies errors. Nil retries every error.
	Retryable func(error) bool

	// Sleep waits between attempts. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns 3 attempts with 1s exponential backoff capped at 300s.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BackoffFactor: time.Second,
		MaxDelay:      300 * time.Second,
		Exponential:   true,
	}
}

// Delay returns the wait before retry number attempt (0-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	var mult float64
	if p.Exponential {
		mult = math.Pow(2, float64(attempt))
	} else {
		mult = float64(attempt + 1)
	}

	d := float64(p.BackoffFactor) * mult
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if d > float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

func (p RetryPolicy) retryable(err error) bool {
	if p.Retryable == nil {
		return true
	}
	return p.Retryable(err)
}

func (p RetryPolicy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	return SleepContext(ctx, d)
}

// SleepContext waits for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retry invokes fn until it succeeds, returns a non-retryable error, or
// MaxAttempts invocations have failed. The last error is returned unchanged.
// There is no wait after the final attempt.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	_, err := RetryValue(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// RetryValue is Retry for operations that produce a value.
func RetryValue[T any](ctx context.Context, p RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if !p.retryable(err) {
			return zero, err
		}

		if attempt == attempts-1 {
			logging.Ctx(ctx).Error().Err(err).
				Str("operation", p.Name).
				Int("attempts", attempts).
				Msg("Retry attempts exhausted")
			return zero, err
		}

		delay := p.Delay(attempt)
		logging.Ctx(ctx).Warn().Err(err).
			Str("operation", p.Name).
			Int("attempt", attempt+1).
			Int("max_attempts", attempts).
			Dur("delay", delay).
			Msg("Retry attempt")

		if err := p.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, nil
}
