// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/logging"
	"github.com/tomtom215/lmsbridge/internal/metrics"
)

var (
	// ErrNoToken is returned when nothing was ever stored for a service.
	ErrNoToken = &lmserr.Error{Kind: lmserr.KindAuth, Code: "no_token", Message: "no token stored"}

	// ErrReauthRequired is returned when a token has expired and cannot be
	// refreshed. The caller must obtain new credentials.
	ErrReauthRequired = &lmserr.Error{Kind: lmserr.KindTokenExpired, Code: "reauth_required", Message: "token expired, re-authentication required"}
)

// Token is a credential for one remote service.
type Token struct {
	Service   string    `json:"service"`
	Value     string    `json:"value"`
	ExpiresAt time.Time `json:"expires_at,omitempty"` // zero never expires
}

// Expired reports whether the token is past its expiry at now.
func (t Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// TokenStore persists tokens by service name.
type TokenStore interface {
	Get(ctx context.Context, service string) (Token, bool, error)
	Put(ctx context.Context, token Token) error
	Delete(ctx context.Context, service string) error
}

// Refresher obtains a fresh token for a service. A zero expiresIn means the
// token does not expire.
type Refresher func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// TokenManager hands out valid tokens, refreshing expired ones through the
// refresher registered for the service.
type TokenManager struct {
	store TokenStore
	now   func() time.Time

	mu         sync.Mutex
	refreshers map[string]Refresher
	refreshMu  map[string]*sync.Mutex
}

// NewTokenManager creates a manager over store. A nil store uses memory.
func NewTokenManager(store TokenStore) *TokenManager {
	if store == nil {
		store = NewMemoryTokenStore()
	}
	return &TokenManager{
		store:      store,
		now:        time.Now,
		refreshers: make(map[string]Refresher),
		refreshMu:  make(map[string]*sync.Mutex),
	}
}

// RegisterRefresher sets the refresh hook for service.
func (m *TokenManager) RegisterRefresher(service string, r Refresher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshers[service] = r
}

func (m *TokenManager) refresher(service string) (Refresher, *sync.Mutex) {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.refreshMu[service]
	if !ok {
		lock = &sync.Mutex{}
		m.refreshMu[service] = lock
	}
	return m.refreshers[service], lock
}

// Store saves a token. A zero expiresIn stores a token without expiry.
func (m *TokenManager) Store(ctx context.Context, service, token string, expiresIn time.Duration) error {
	t := Token{Service: service, Value: token}
	if expiresIn > 0 {
		t.ExpiresAt = m.now().Add(expiresIn)
	}
	if err := m.store.Put(ctx, t); err != nil {
		return fmt.Errorf("store token for %s: %w", service, err)
	}
	return nil
}

// GetValid returns a usable token for service. An expired token is refreshed
// through the registered refresher; without one the token is evicted and
// ErrReauthRequired is returned.
func (m *TokenManager) GetValid(ctx context.Context, service string) (string, error) {
	t, ok, err := m.store.Get(ctx, service)
	if err != nil {
		return "", fmt.Errorf("load token for %s: %w", service, err)
	}
	if ok && !t.Expired(m.now()) {
		return t.Value, nil
	}

	refresh, lock := m.refresher(service)
	if refresh == nil {
		if !ok {
			return "", ErrNoToken
		}
		if err := m.store.Delete(ctx, service); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("service", service).Msg("Failed to evict expired token")
		}
		logging.Ctx(ctx).Warn().Str("service", service).Msg("Token expired and no refresher registered")
		return "", ErrReauthRequired
	}

	lock.Lock()
	defer lock.Unlock()

	// Another caller may have refreshed while we waited.
	if t, ok, err := m.store.Get(ctx, service); err == nil && ok && !t.Expired(m.now()) {
		return t.Value, nil
	}

	value, expiresIn, err := refresh(ctx)
	metrics.RecordTokenRefresh(service, err)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("service", service).Msg("Token refresh failed")
		return "", lmserr.Wrap(lmserr.KindTokenExpired, "token refresh failed for "+service, err)
	}

	if err := m.Store(ctx, service, value, expiresIn); err != nil {
		return "", err
	}
	logging.Ctx(ctx).Debug().Str("service", service).Dur("expires_in", expiresIn).Msg("Token refreshed")
	return value, nil
}

// Invalidate removes the token for service so the next GetValid refreshes.
func (m *TokenManager) Invalidate(ctx context.Context, service string) error {
	return m.store.Delete(ctx, service)
}
