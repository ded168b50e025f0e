// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package resilience

import (
	"context"
)

// Guard composes a circuit with a retry policy. The circuit is outermost:
// the whole retry loop is one call against the circuit, and an open circuit
// rejects the call before any attempt is made.
type Guard struct {
	breakers *CircuitRegistry
	key      string
	policy   RetryPolicy
}

// NewGuard returns a Guard for the circuit identified by key.
func NewGuard(breakers *CircuitRegistry, key string, policy RetryPolicy) *Guard {
	if policy.Name == "" {
		policy.Name = key
	}
	return &Guard{breakers: breakers, key: key, policy: policy}
}

// Key returns the circuit key.
func (g *Guard) Key() string { return g.key }

// Do runs fn under the guard.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := GuardCall(ctx, g, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// GuardCall is Guard.Do for operations that produce a value.
func GuardCall[T any](ctx context.Context, g *Guard, fn func(ctx context.Context) (T, error)) (T, error) {
	return ExecuteValue(g.breakers, g.key, func() (T, error) {
		return RetryValue(ctx, g.policy, fn)
	})
}
