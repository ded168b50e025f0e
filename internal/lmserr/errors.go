// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

// Package lmserr defines the typed error taxonomy shared by every outbound
// LMS call path.
//
// Both the generic robust HTTP client and the Moodle RPC client classify
// failures into the same Kind values, so callers branch on kinds with
// errors.Is / errors.As instead of inspecting message text:
//
//	if errors.Is(err, lmserr.ErrCircuitOpen) {
//	    // fail fast, the remote LMS is being protected
//	}
//
//	var lerr *lmserr.Error
//	if errors.As(err, &lerr) && lerr.Kind == lmserr.KindAuth {
//	    // credentials must be fixed by an operator
//	}
package lmserr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/lmsbridge/internal/logging"
)

// Kind classifies an LMS integration failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindValidation
	KindNotFound
	KindServiceUnavailable
	KindCircuitOpen
	KindRateLimit
	KindTimeout
	KindConnection
	KindRequest
	KindHTTP
	KindTokenExpired
	KindIntegration
	KindConfiguration
)

// String returns the string representation of the error kind.
func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindServiceUnavailable:
		return "service_unavailable"
	case KindCircuitOpen:
		return "circuit_open"
	case KindRateLimit:
		return "rate_limit"
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	case KindRequest:
		return "request"
	case KindHTTP:
		return "http"
	case KindTokenExpired:
		return "token_expired"
	case KindIntegration:
		return "integration"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrAuth               = &Error{Kind: KindAuth}
	ErrValidation         = &Error{Kind: KindValidation}
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrServiceUnavailable = &Error{Kind: KindServiceUnavailable}
	ErrCircuitOpen        = &Error{Kind: KindCircuitOpen}
	ErrRateLimit          = &Error{Kind: KindRateLimit}
	ErrTimeout            = &Error{Kind: KindTimeout}
	ErrConnection         = &Error{Kind: KindConnection}
	ErrRequest            = &Error{Kind: KindRequest}
	ErrHTTP               = &Error{Kind: KindHTTP}
	ErrTokenExpired       = &Error{Kind: KindTokenExpired}
	ErrIntegration        = &Error{Kind: KindIntegration}
	ErrConfiguration      = &Error{Kind: KindConfiguration}
)

// Error is a classified LMS failure.
type Error struct {
	Kind Kind

	// Code is the remote error code when the LMS reported one (e.g. Moodle's "invalidtoken").
	Code string

	// Exception is the remote exception class name, if any.
	Exception string

	// Status is the HTTP status this failure maps to.
	Status int

	Message  string
	Platform string
	Op       string

	// RetryAfter is the server-provided back-off hint for rate limiting.
	RetryAfter time.Duration

	Err error
}

// Error implements the error interface. Credential parameters that leak in
// through wrapped transport errors are redacted.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Platform != "" {
		b.WriteString(e.Platform)
		b.WriteString(": ")
	}
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	b.WriteString(msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return logging.RedactSecrets(b.String())
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. Sentinels carry
// only a kind, so errors.Is(err, lmserr.ErrTimeout) matches any timeout.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

// New creates a classified error with the default status for its kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Status: DefaultStatus(kind), Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap creates a classified error around cause.
func Wrap(kind Kind, message string, cause error) *Error {
	e := New(kind, message)
	e.Err = cause
	return e
}

// WithPlatform returns a copy tagged with the platform and operation names.
func (e *Error) WithPlatform(platform, op string) *Error {
	c := *e
	c.Platform = platform
	c.Op = op
	return &c
}

// DefaultStatus is the HTTP status a kind maps to when the remote did not supply one.
func DefaultStatus(kind Kind) int {
	switch kind {
	case KindAuth, KindTokenExpired:
		return http.StatusUnauthorized
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindServiceUnavailable, KindCircuitOpen, KindConnection:
		return http.StatusServiceUnavailable
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindIntegration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// KindOf extracts the kind of err, or KindUnknown for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusOf extracts the HTTP status of err, defaulting to 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		if e.Status != 0 {
			return e.Status
		}
		return DefaultStatus(e.Kind)
	}
	return http.StatusInternalServerError
}

// IsTransient reports whether err is a failure that may succeed on retry.
// Validation, auth and not-found errors are never transient.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindConnection, KindServiceUnavailable, KindRateLimit:
		return true
	default:
		return false
	}
}

// IsTransientOrIntegration is IsTransient widened with integration failures.
// Course sync uses it so a malformed remote payload also trips the breaker.
func IsTransientOrIntegration(err error) bool {
	return IsTransient(err) || KindOf(err) == KindIntegration || KindOf(err) == KindHTTP
}
