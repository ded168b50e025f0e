// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/lmsbridge/internal/models"
)

// Circuits returns every registered circuit keyed by name.
func (h *Handler) Circuits(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, h.circuits.Status())
}

// TestConnections tests every configured platform concurrently.
func (h *Handler) TestConnections(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, h.lms.TestAll(r.Context()))
}

// TestConnection tests one platform. An unconfigured but known platform
// reports ok=false rather than an error.
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	p, err := models.ParsePlatform(chi.URLParam(r, "platform"))
	if err != nil {
		respondError(w, r, http.StatusNotFound, &models.APIError{
			Code:    ErrCodeNotFound,
			Message: err.Error(),
		})
		return
	}
	respondSuccess(w, r, h.lms.TestConnection(r.Context(), p))
}
