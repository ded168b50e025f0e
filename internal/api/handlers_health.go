// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tomtom215/lmsbridge/internal/logging"
	"github.com/tomtom215/lmsbridge/internal/models"
)

// HealthLive answers the liveness probe. It never touches dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady answers the readiness probe: 200 when the course store
// responds, 503 otherwise. Remote LMS reachability is reported by the
// connection test endpoints instead, so one LMS outage does not pull the
// instance out of rotation.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.readyTimeout)
	defer cancel()

	status := models.HealthStatus{
		Status:            "healthy",
		DatabaseConnected: true,
		SchedulerRunning:  h.scheduler.IsRunning(),
		ConfiguredLMS:     h.lms.Platforms(),
		UptimeSeconds:     time.Since(h.startTime).Seconds(),
	}

	if err := h.db.Ping(ctx); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed: database unreachable")
		status.Status = "degraded"
		status.DatabaseConnected = false
		respondJSON(w, http.StatusServiceUnavailable, &models.APIResponse{
			Status:   "error",
			Data:     status,
			Metadata: metadata(r),
			Error: &models.APIError{
				Code:    ErrCodeNotReady,
				Message: "database unreachable",
			},
		})
		return
	}

	respondSuccess(w, r, status)
}
