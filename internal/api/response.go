// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/logging"
	"github.com/tomtom215/lmsbridge/internal/models"
	"github.com/tomtom215/lmsbridge/internal/validation"
)

// Error codes not derived from an lmserr kind.
const (
	ErrCodeBadRequest       = "BAD_REQUEST"
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeInternal         = "INTERNAL_ERROR"
	ErrCodeNotReady         = "NOT_READY"
	ErrCodeTooManyRequests  = "RATE_LIMIT_EXCEEDED"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeNotFound         = "NOT_FOUND"
)

const maxBodyBytes = 64 << 10

// sanitizeLogValue escapes control characters so request input cannot forge log lines.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func metadata(r *http.Request) models.Metadata {
	return models.Metadata{
		Timestamp: time.Now().UTC(),
		RequestID: logging.RequestIDFromContext(r.Context()),
	}
}

// respondJSON writes the envelope with status. Ops responses are never cached.
func respondJSON(w http.ResponseWriter, status int, response *models.APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Data:     data,
		Metadata: metadata(r),
	})
}

func respondError(w http.ResponseWriter, r *http.Request, status int, apiErr *models.APIError) {
	respondJSON(w, status, &models.APIResponse{
		Status:   "error",
		Metadata: metadata(r),
		Error:    apiErr,
	})
}

func respondValidation(w http.ResponseWriter, r *http.Request, verr *validation.RequestValidationError) {
	e := verr.ToAPIError()
	respondError(w, r, http.StatusBadRequest, &models.APIError{
		Code:    ErrCodeValidation,
		Message: e.Message,
		Details: e.Details,
	})
}

// respondLMSError maps err onto the envelope. Classified errors keep their
// status and code; anything else is logged and reported as a 500 without
// leaking the cause.
func respondLMSError(w http.ResponseWriter, r *http.Request, err error) {
	var e *lmserr.Error
	if !errors.As(err, &e) {
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Unclassified API error")
		respondError(w, r, http.StatusInternalServerError, &models.APIError{
			Code:    ErrCodeInternal,
			Message: "internal server error",
		})
		return
	}

	code := e.Code
	if code == "" {
		code = e.Kind.String()
	}
	apiErr := &models.APIError{
		Code:    strings.ToUpper(code),
		Message: err.Error(),
	}
	if e.Platform != "" {
		apiErr.Details = map[string]interface{}{"platform": e.Platform}
	}

	status := lmserr.StatusOf(err)
	if e.RetryAfter > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(e.RetryAfter.Seconds())))
	}
	if status >= http.StatusInternalServerError {
		logging.Ctx(r.Context()).Warn().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("LMS request failed")
	}
	respondError(w, r, status, apiErr)
}

// decodeBody decodes an optional JSON body into v. It reports false when the
// body was empty.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) (bool, error) {
	if r.Body == nil || r.ContentLength == 0 {
		return false, nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return true, err
	}
	return true, nil
}
