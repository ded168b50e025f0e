// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package lmserr

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// maxBodyInMessage bounds how much of a remote error body is echoed into messages.
const maxBodyInMessage = 256

// FromStatus maps an HTTP error response to a typed error.
// 401 is TokenExpired, 429 RateLimit, 5xx ServiceUnavailable and any other
// status at or above 400 is HTTP. Statuses below 400 return nil.
func FromStatus(status int, body []byte, header http.Header) *Error {
	if status < 400 {
		return nil
	}

	text := strings.TrimSpace(string(body))
	if len(text) > maxBodyInMessage {
		cut := maxBodyInMessage
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}

	var e *Error
	switch {
	case status == http.StatusUnauthorized:
		e = New(KindTokenExpired, "authentication token expired or invalid")
	case status == http.StatusTooManyRequests:
		e = New(KindRateLimit, "rate limit exceeded")
		e.RetryAfter = ParseRetryAfter(header.Get("Retry-After"), time.Now())
	case status >= 500:
		e = Newf(KindServiceUnavailable, "service unavailable (HTTP %d)", status)
	default:
		e = Newf(KindHTTP, "HTTP %d", status)
	}
	e.Status = status
	if text != "" {
		e.Message += ": " + text
	}
	return e
}

// FromTransport maps a transport-level failure (no HTTP response) to a typed error.
// A nil error returns nil.
func FromTransport(err error) *Error {
	if err == nil {
		return nil
	}

	var already *Error
	if errors.As(err, &already) {
		return already
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded) || isTimeout(err):
		return Wrap(KindTimeout, "request timed out", err)
	case errors.Is(err, context.Canceled):
		return Wrap(KindRequest, "request canceled", err)
	case isConnection(err):
		return Wrap(KindConnection, "connection failed", err)
	default:
		return Wrap(KindRequest, "request failed", err)
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isConnection(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		msg := urlErr.Err.Error()
		return strings.Contains(msg, "connection refused") ||
			strings.Contains(msg, "connection reset") ||
			strings.Contains(msg, "EOF") ||
			strings.Contains(msg, "no such host")
	}
	return false
}

// ParseRetryAfter parses a Retry-After header in either delay-seconds or
// HTTP-date form. Unparseable or past values yield zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
