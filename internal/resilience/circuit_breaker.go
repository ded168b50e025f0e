// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package resilience

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/logging"
	"github.com/tomtom215/lmsbridge/internal/metrics"
)

// Circuit states as reported by Status.
const (
	StateClosed   = "closed"
	StateOpen     = "open"
	StateHalfOpen = "half_open"
)

// BreakerSettings configures one circuit.
type BreakerSettings struct {
	// FailureThreshold is the number of consecutive counted failures that opens the circuit.
	FailureThreshold int

	// RecoveryTimeout is how long the circuit stays open after the last failure
	// before a single trial call is let through.
	RecoveryTimeout time.Duration

	// Trips classifies errors that count as failures. Errors it rejects pass
	// through without touching the counters. Nil counts every error.
	Trips func(error) bool
}

// DefaultBreakerSettings returns 5 failures and a 60s recovery timeout.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{FailureThreshold: 5, RecoveryTimeout: 60 * time.Second}
}

// CircuitStatus is a read-only snapshot of one circuit.
type CircuitStatus struct {
	State                   string   `json:"state"`
	Failures                int      `json:"failures"`
	SecondsSinceLastFailure *float64 `json:"seconds_since_last_failure"`
}

// circuit pairs a gobreaker instance with the failure bookkeeping the status
// query reports. gobreaker clears its own counts on every state change.
type circuit struct {
	name  string
	cb    *gobreaker.CircuitBreaker[any]
	trips func(error) bool

	mu          sync.Mutex
	failures    int
	lastFailure time.Time
}

// CircuitRegistry owns one circuit per key. Circuits are created lazily on
// first use and live as long as the registry.
type CircuitRegistry struct {
	mu       sync.Mutex
	circuits map[string]*circuit
	defaults BreakerSettings
	now      func() time.Time
}

// NewCircuitRegistry creates a registry whose lazily created circuits use defaults.
func NewCircuitRegistry(defaults BreakerSettings) *CircuitRegistry {
	if defaults.FailureThreshold < 1 {
		defaults.FailureThreshold = DefaultBreakerSettings().FailureThreshold
	}
	if defaults.RecoveryTimeout <= 0 {
		defaults.RecoveryTimeout = DefaultBreakerSettings().RecoveryTimeout
	}
	return &CircuitRegistry{
		circuits: make(map[string]*circuit),
		defaults: defaults,
		now:      time.Now,
	}
}

// Register creates the circuit for key with specific settings. It is a no-op
// if the circuit already exists.
func (r *CircuitRegistry) Register(key string, s BreakerSettings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.circuits[key]; ok {
		return
	}
	r.circuits[key] = r.newCircuit(key, s)
}

func (r *CircuitRegistry) get(key string) *circuit {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.circuits[key]
	if !ok {
		c = r.newCircuit(key, r.defaults)
		r.circuits[key] = c
	}
	return c
}

// newCircuit builds a circuit (must be called with r.mu held).
func (r *CircuitRegistry) newCircuit(key string, s BreakerSettings) *circuit {
	if s.FailureThreshold < 1 {
		s.FailureThreshold = r.defaults.FailureThreshold
	}
	if s.RecoveryTimeout <= 0 {
		s.RecoveryTimeout = r.defaults.RecoveryTimeout
	}
	trips := s.Trips
	if trips == nil {
		trips = func(error) bool { return true }
	}

	c := &circuit{name: key, trips: trips}
	threshold := uint32(s.FailureThreshold)

	metrics.CircuitBreakerState.WithLabelValues(key).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(key).Set(0)

	c.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        key,
		MaxRequests: 1, // single trial call in half-open
		Interval:    0, // never clear counts while closed
		Timeout:     s.RecoveryTimeout,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},

		IsExcluded: func(err error) bool {
			return err != nil && !trips(err)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateName(from), stateName(to)
			event := logging.Info()
			if to == gobreaker.StateOpen {
				event = logging.Warn()
			}
			event.Str("circuit", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return c
}

// Execute runs fn through the circuit for key. While the circuit is open the
// call fails fast with a CircuitOpen error and fn is not invoked.
func (r *CircuitRegistry) Execute(key string, fn func() error) error {
	_, err := ExecuteValue(r, key, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// ExecuteValue is Execute for operations that produce a value.
func ExecuteValue[T any](r *CircuitRegistry, key string, fn func() (T, error)) (T, error) {
	c := r.get(key)

	result, err := c.cb.Execute(func() (any, error) {
		return fn()
	})

	var zero T
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(key, "rejected").Inc()
			logging.Warn().Str("circuit", key).Msg("[CIRCUIT BREAKER] Request rejected")
			return zero, lmserr.Wrap(lmserr.KindCircuitOpen,
				fmt.Sprintf("%s temporarily unavailable, circuit open", key), err)
		}

		if c.trips(err) {
			c.recordFailure(r.now())
			metrics.CircuitBreakerRequests.WithLabelValues(key, "failure").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(key, "ignored").Inc()
		}
		return zero, err
	}

	c.recordSuccess()
	metrics.CircuitBreakerRequests.WithLabelValues(key, "success").Inc()

	return castResult[T](result)
}

func (c *circuit) recordFailure(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	c.lastFailure = at
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(c.name).Set(float64(c.failures))
}

func (c *circuit) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(c.name).Set(0)
}

// Status returns a snapshot of every circuit created so far.
func (r *CircuitRegistry) Status() map[string]CircuitStatus {
	r.mu.Lock()
	circuits := make([]*circuit, 0, len(r.circuits))
	for _, c := range r.circuits {
		circuits = append(circuits, c)
	}
	r.mu.Unlock()

	now := r.now()
	out := make(map[string]CircuitStatus, len(circuits))
	for _, c := range circuits {
		c.mu.Lock()
		st := CircuitStatus{
			State:    stateName(c.cb.State()),
			Failures: c.failures,
		}
		if !c.lastFailure.IsZero() {
			secs := now.Sub(c.lastFailure).Seconds()
			st.SecondsSinceLastFailure = &secs
		}
		c.mu.Unlock()
		out[c.name] = st
	}
	return out
}

// State returns the current state of the circuit for key, or closed if it does not exist yet.
func (r *CircuitRegistry) State(key string) string {
	r.mu.Lock()
	c, ok := r.circuits[key]
	r.mu.Unlock()
	if !ok {
		return StateClosed
	}
	return stateName(c.cb.State())
}

// Keys returns the circuit keys in sorted order.
func (r *CircuitRegistry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.circuits))
	for k := range r.circuits {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// castResult safely type-casts the circuit breaker result.
func castResult[T any](result any) (T, error) {
	var zero T
	if result == nil {
		return zero, nil
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// stateName converts gobreaker state to the status vocabulary.
func stateName(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return StateClosed
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return "unknown"
	}
}

// stateToFloat converts circuit breaker state to float for Prometheus metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
