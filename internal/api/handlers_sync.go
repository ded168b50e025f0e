// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/lmsbridge/internal/logging"
	"github.com/tomtom215/lmsbridge/internal/models"
	"github.com/tomtom215/lmsbridge/internal/validation"
)

// SyncStatus returns the scheduler snapshot. It does not wait for a running pass.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, h.scheduler.Status())
}

// ForceSync runs a sync immediately.
//
// With {"lms_type": "canvas"} only that platform is synced and failures are
// returned with their mapped status. Without a body every configured platform
// is synced and per-platform outcomes are returned with 200.
func (h *Handler) ForceSync(w http.ResponseWriter, r *http.Request) {
	var req models.ForceSyncRequest
	if _, err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, &models.APIError{
			Code:    ErrCodeBadRequest,
			Message: "invalid JSON body",
		})
		return
	}

	req.LMSType = strings.ToLower(strings.TrimSpace(req.LMSType))
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	if req.LMSType == "" {
		outcomes := h.scheduler.ForceSyncAll(r.Context())
		respondSuccess(w, r, map[string]interface{}{"results": outcomes})
		return
	}

	p, err := models.ParsePlatform(req.LMSType)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, &models.APIError{
			Code:    ErrCodeValidation,
			Message: err.Error(),
		})
		return
	}

	logging.Ctx(r.Context()).Info().Str("platform", sanitizeLogValue(req.LMSType)).Msg("Force sync requested")
	res, err := h.scheduler.ForceSync(r.Context(), p)
	if err != nil {
		respondLMSError(w, r, err)
		return
	}
	respondSuccess(w, r, res)
}

// SetSyncInterval changes the background sync interval. Values under 60
// seconds are rejected.
func (h *Handler) SetSyncInterval(w http.ResponseWriter, r *http.Request) {
	var req models.SyncIntervalRequest
	if _, err := decodeBody(w, r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, &models.APIError{
			Code:    ErrCodeBadRequest,
			Message: "invalid JSON body",
		})
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondValidation(w, r, verr)
		return
	}

	if err := h.scheduler.SetSyncInterval(time.Duration(req.IntervalSeconds) * time.Second); err != nil {
		respondLMSError(w, r, err)
		return
	}
	respondSuccess(w, r, h.scheduler.Status())
}
