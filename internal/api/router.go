// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/lmsbridge/internal/config"
	"github.com/tomtom215/lmsbridge/internal/models"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// RouterConfigFrom derives router settings from the server config.
func RouterConfigFrom(cfg config.ServerConfig) RouterConfig {
	return RouterConfig{
		RateLimitRequests: cfg.RateLimitReqs,
		RateLimitWindow:   cfg.RateLimitWindow,
	}
}

// NewRouter builds the ops API:
//
//	GET  /api/v1/health/live
//	GET  /api/v1/health/ready
//	GET  /api/v1/sync/status
//	POST /api/v1/sync/force
//	PUT  /api/v1/sync/interval
//	GET  /api/v1/circuits
//	GET  /api/v1/lms/test
//	GET  /api/v1/lms/{platform}/test
//	GET  /metrics
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, &models.APIError{Code: ErrCodeNotFound, Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, &models.APIError{Code: ErrCodeMethodNotAllowed, Message: "method not allowed"})
	})

	// Probes are not rate limited.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(PrometheusMetrics())
		r.Use(APISecurityHeaders())
		r.Use(RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/sync", func(r chi.Router) {
			r.Get("/status", h.SyncStatus)
			r.Post("/force", h.ForceSync)
			r.Put("/interval", h.SetSyncInterval)
			r.Post("/interval", h.SetSyncInterval)
		})

		r.Get("/circuits", h.Circuits)

		r.Route("/lms", func(r chi.Router) {
			r.Get("/test", h.TestConnections)
			r.Get("/{platform}/test", h.TestConnection)
		})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
