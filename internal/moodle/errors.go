// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package moodle

import (
	"errors"
	"net/http"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
)

// Platform is the platform name attached to every Moodle error.
const Platform = "moodle"

// exception is the error payload Moodle returns with HTTP 200.
type exception struct {
	Exception string `json:"exception"`
	ErrorCode string `json:"errorcode"`
	Message   string `json:"message"`
	DebugInfo string `json:"debuginfo,omitempty"`
}

var (
	authCodes = map[string]bool{
		"invalidtoken":    true,
		"accessexception": true,
		"nopermissions":   true,
		"notloggedin":     true,
	}
	validationCodes = map[string]bool{
		"invalidparameter": true,
		"missingparam":     true,
		"invalidrecord":    true,
	}
	notFoundCodes = map[string]bool{
		"invaliduser":    true,
		"invalidcourse":  true,
		"coursenotexist": true,
	}
)

// normalizeException maps a Moodle exception payload onto the error taxonomy.
func normalizeException(ex exception) *lmserr.Error {
	code := ex.ErrorCode
	if code == "" {
		code = "unknown"
	}
	message := ex.Message
	if message == "" {
		message = "Unknown Moodle error"
	}

	var e *lmserr.Error
	switch {
	case code == "invalidtoken":
		e = lmserr.New(lmserr.KindAuth, "Invalid Moodle token")
		e.Status = http.StatusUnauthorized
	case authCodes[code]:
		e = lmserr.New(lmserr.KindAuth, "Access denied: "+message)
		e.Status = http.StatusForbidden
	case validationCodes[code]:
		e = lmserr.New(lmserr.KindValidation, "Validation error: "+message)
	case notFoundCodes[code]:
		e = lmserr.New(lmserr.KindNotFound, "Resource not found: "+message)
	default:
		e = lmserr.New(lmserr.KindIntegration, "Moodle error: "+message)
		e.Status = http.StatusInternalServerError
	}
	e.Code = code
	e.Exception = ex.Exception
	return e
}

// Exception classes and codes Moodle uses when a web service function is not
// installed or not enabled on the external service.
var unavailableSignals = []struct {
	exception string
	code      string
}{
	{"dml_missing_record_exception", "invalidrecord"},
	{"webservice_access_exception", "accessexception"},
	{"moodle_exception", "servicenotavailable"},
	{"invalid_parameter_exception", "invalidfunction"},
}

// IsFunctionUnavailable reports whether err says the called web service
// function does not exist or is not enabled on the site.
func IsFunctionUnavailable(err error) bool {
	var e *lmserr.Error
	if !errors.As(err, &e) || e.Exception == "" {
		return false
	}
	for _, s := range unavailableSignals {
		if e.Exception == s.exception && e.Code == s.code {
			return true
		}
	}
	return false
}

// retryable classifies failures of idempotent reads. Moodle exceptions and
// malformed payloads are final; transport and HTTP failures are not.
func retryable(err error) bool {
	switch lmserr.KindOf(err) {
	case lmserr.KindTimeout, lmserr.KindConnection, lmserr.KindServiceUnavailable,
		lmserr.KindRateLimit, lmserr.KindHTTP:
		return true
	default:
		return false
	}
}
