// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/lmsbridge/internal/logging"
)

// HTTPServer is the subset of *http.Server the ops service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// OpsServerService runs the operations HTTP server under supervision.
//
// ListenAndServe runs in a goroutine. When ctx is canceled the server is
// given drainTimeout to finish in-flight requests. A listener failure is
// returned so suture restarts the service.
type OpsServerService struct {
	server       HTTPServer
	addr         string
	drainTimeout time.Duration
}

// NewOpsServerService wraps server. addr is only used for logging.
func NewOpsServerService(server HTTPServer, addr string, drainTimeout time.Duration) *OpsServerService {
	if drainTimeout <= 0 {
		drainTimeout = 10 * time.Second
	}
	return &OpsServerService{server: server, addr: addr, drainTimeout: drainTimeout}
}

// Serve implements suture.Service.
func (o *OpsServerService) Serve(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() {
		err := o.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		listenErr <- err
	}()

	logging.Info().Str("addr", o.addr).Msg("Ops API listening")

	select {
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("ops api listen: %w", err)
		}
		return nil

	case <-ctx.Done():
		// ctx is already done, so draining needs its own deadline.
		drainCtx, cancel := context.WithTimeout(context.Background(), o.drainTimeout)
		defer cancel()

		if err := o.server.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("ops api shutdown: %w", err)
		}
		<-listenErr
		logging.Info().Str("addr", o.addr).Msg("Ops API stopped")
		return ctx.Err()
	}
}

func (o *OpsServerService) String() string {
	return "ops-api-server"
}
