// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package services

import (
	"context"
	"time"

	"github.com/tomtom215/lmsbridge/internal/logging"
)

// GarbageCollector reclaims space in an on-disk store.
// Satisfied by *resilience.BadgerTokenStore.
type GarbageCollector interface {
	CollectGarbage() error
}

// TokenGCService periodically compacts the persistent token store.
// GC errors are logged and never end the service.
type TokenGCService struct {
	store    GarbageCollector
	interval time.Duration
}

// NewTokenGCService creates the service. interval defaults to 10 minutes.
func NewTokenGCService(store GarbageCollector, interval time.Duration) *TokenGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &TokenGCService{store: store, interval: interval}
}

// Serve implements suture.Service.
func (s *TokenGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.store.CollectGarbage(); err != nil {
				logging.Warn().Err(err).Msg("Token store GC failed")
			}
		}
	}
}

func (s *TokenGCService) String() string {
	return "token-store-gc"
}
