// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

// Package moodle is a typed client for the Moodle web service REST protocol.
//
// Every call is a form-encoded POST to {base}/webservice/rest/server.php
// carrying wstoken, wsfunction and moodlewsrestformat=json plus parameters
// flattened by EncodeParams. Moodle reports failures as HTTP 200 with an
// exception payload; the client normalizes those into lmserr kinds.
//
// Only read functions on the idempotent allow-list are retried. The token is
// sent in the request body and never logged.
package moodle

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/logging"
	"github.com/tomtom215/lmsbridge/internal/metrics"
	"github.com/tomtom215/lmsbridge/internal/resilience"
)

const (
	restPath   = "/webservice/rest/server.php"
	uploadPath = "/webservice/upload.php"

	// maxIdempotentRetries is the number of extra attempts for allow-listed reads.
	maxIdempotentRetries = 2
	retryBackoff         = 100 * time.Millisecond
	maxResponseBytes     = 32 << 20
)

// idempotentFunctions are safe to retry.
var idempotentFunctions = map[string]bool{
	"core_webservice_get_site_info":                     true,
	"core_course_get_courses":                           true,
	"core_user_get_users_by_field":                      true,
	"message_popup_get_popup_notifications":             true,
	"core_message_get_popup_notifications":              true,
	"core_message_get_unread_popup_notifications_count": true,
	"core_course_get_contents":                          true,
	"core_course_get_categories":                        true,
	"core_course_search_courses":                        true,
	"core_enrol_get_users_courses":                      true,
}

// IsIdempotent reports whether wsfunction is on the retry allow-list.
func IsIdempotent(wsfunction string) bool {
	return idempotentFunctions[wsfunction]
}

// Config configures a Client.
type Config struct {
	BaseURL       string
	Token         string
	Timeout       time.Duration
	UploadTimeout time.Duration
	Debug         bool
	UserAgent     string

	// UnavailableCacheTTL is how long a function reported as unavailable is
	// skipped in favour of its legacy alternative.
	UnavailableCacheTTL time.Duration

	// Sleep waits between retries. Nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client calls Moodle web service functions.
type Client struct {
	endpoint  string
	uploadURL string
	token     string
	debug     bool

	http   *resilience.RobustClient
	upload *resilience.RobustClient
	sleep  func(ctx context.Context, d time.Duration) error

	unavailable *expirable.LRU[string, struct{}]
}

// NormalizeBaseURL appends the REST endpoint path unless already present.
func NormalizeBaseURL(base string) string {
	if strings.HasSuffix(base, restPath) {
		return base
	}
	return strings.TrimRight(base, "/") + restPath
}

// New creates a Moodle client. Base URL and token are required.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, lmserr.New(lmserr.KindConfiguration, "Moodle base URL is required (set MOODLE_URL)")
	}
	if cfg.Token == "" {
		return nil, lmserr.New(lmserr.KindConfiguration, "Moodle token is required (set MOODLE_TOKEN)")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UploadTimeout <= 0 {
		cfg.UploadTimeout = 60 * time.Second
	}
	if cfg.UnavailableCacheTTL <= 0 {
		cfg.UnavailableCacheTTL = 10 * time.Minute
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "LMS-Backend/1.0"
	}

	// Moodle applies its own idempotency-aware retry, so the transport does not retry.
	opts := resilience.DefaultHTTPClientOptions()
	opts.MaxRetries = 0
	opts.Timeout = cfg.Timeout
	opts.UserAgent = cfg.UserAgent
	httpClient := resilience.NewRobustClient(opts)

	endpoint := NormalizeBaseURL(cfg.BaseURL)
	return &Client{
		endpoint:    endpoint,
		uploadURL:   strings.TrimSuffix(endpoint, restPath) + uploadPath,
		token:       cfg.Token,
		debug:       cfg.Debug,
		http:        httpClient,
		upload:      httpClient.WithTimeout(cfg.UploadTimeout),
		sleep:       cfg.Sleep,
		unavailable: expirable.NewLRU[string, struct{}](64, nil, cfg.UnavailableCacheTTL),
	}, nil
}

// Endpoint returns the REST endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Call invokes wsfunction and decodes the JSON result into out. A nil out
// discards the result.
func (c *Client) Call(ctx context.Context, wsfunction string, params map[string]any, out any) error {
	raw, err := c.CallRaw(ctx, wsfunction, params)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return lmserr.Wrap(lmserr.KindIntegration, "unexpected response shape from Moodle", err).
			WithPlatform(Platform, wsfunction)
	}
	return nil
}

// CallRaw invokes wsfunction and returns the undecoded JSON result.
func (c *Client) CallRaw(ctx context.Context, wsfunction string, params map[string]any) (json.RawMessage, error) {
	requestID := logging.GenerateCorrelationID()
	start := time.Now()

	if c.debug {
		logging.Ctx(ctx).Info().
			Str("request_id", requestID).
			Str("wsfunction", wsfunction).
			Str("endpoint", c.endpoint).
			Msg("Moodle API request started")
	}

	attempts := 1
	if IsIdempotent(wsfunction) {
		attempts += maxIdempotentRetries
	}
	policy := resilience.RetryPolicy{
		Name:          "moodle." + wsfunction,
		MaxAttempts:   attempts,
		BackoffFactor: retryBackoff,
		Exponential:   true,
		Retryable:     retryable,
		Sleep:         c.sleep,
	}

	tries := 0
	raw, err := resilience.RetryValue(ctx, policy, func(ctx context.Context) (json.RawMessage, error) {
		if tries > 0 {
			metrics.MoodleRetries.WithLabelValues(wsfunction).Inc()
		}
		tries++
		return c.post(ctx, wsfunction, params)
	})

	duration := time.Since(start)
	metrics.RecordMoodleCall(wsfunction, duration, err)

	if err != nil {
		logging.Ctx(ctx).Error().
			Str("request_id", requestID).
			Str("wsfunction", wsfunction).
			Dur("duration", duration).
			Str("error", err.Error()).
			Msg("Moodle API request failed")
		return nil, err
	}

	if c.debug {
		logging.Ctx(ctx).Info().
			Str("request_id", requestID).
			Str("wsfunction", wsfunction).
			Dur("duration", duration).
			Int("attempts", tries).
			Msg("Moodle API request completed")
	}
	return raw, nil
}

// post performs one attempt.
func (c *Client) post(ctx context.Context, wsfunction string, params map[string]any) (json.RawMessage, error) {
	form := EncodeParams(params)
	form.Set("wstoken", c.token)
	form.Set("wsfunction", wsfunction)
	form.Set("moodlewsrestformat", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, lmserr.Wrap(lmserr.KindRequest, "create request", err).WithPlatform(Platform, wsfunction)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.wrap(err, wsfunction)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.wrap(lmserr.FromTransport(err), wsfunction)
	}
	return decodeResult(body, wsfunction)
}

// decodeResult validates the payload and turns exception objects into errors.
func decodeResult(body []byte, wsfunction string) (json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if !json.Valid(body) {
		return nil, lmserr.New(lmserr.KindIntegration, "Invalid JSON response from Moodle").
			WithPlatform(Platform, wsfunction)
	}

	// Any object carrying an exception key is a failure, even when the
	// class is null or empty.
	if len(body) > 0 && body[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err == nil {
			if _, ok := fields["exception"]; ok {
				var ex exception
				_ = json.Unmarshal(body, &ex)
				return nil, normalizeException(ex).WithPlatform(Platform, wsfunction)
			}
		}
	}
	return json.RawMessage(body), nil
}

// wrap tags err with the platform and function, redacting the token.
func (c *Client) wrap(err error, wsfunction string) error {
	e := lmserr.FromTransport(err).WithPlatform(Platform, wsfunction)
	e.Message = logging.RedactValue(e.Message, c.token)
	if e.Err != nil {
		e.Err = redactedError{msg: logging.RedactValue(e.Err.Error(), c.token), cause: e.Err}
	}
	return e
}

// redactedError hides a secret from the message while keeping the cause
// reachable for errors.Is.
type redactedError struct {
	msg   string
	cause error
}

func (r redactedError) Error() string { return r.msg }
func (r redactedError) Unwrap() error { return r.cause }

// callWithFallback calls primary and, when Moodle reports it unavailable,
// legacy. The unavailable answer is remembered for a while so later calls go
// straight to legacy.
func (c *Client) callWithFallback(ctx context.Context, primary string, primaryParams map[string]any, legacy string, legacyParams map[string]any, out any) error {
	if !c.unavailable.Contains(primary) {
		err := c.Call(ctx, primary, primaryParams, out)
		if err == nil || !IsFunctionUnavailable(err) {
			return err
		}
		c.unavailable.Add(primary, struct{}{})
		logging.Ctx(ctx).Warn().
			Str("wsfunction", primary).
			Str("fallback", legacy).
			Msg("Moodle function unavailable, using legacy function")
	}

	metrics.MoodleFallbacks.WithLabelValues(legacy).Inc()
	return c.Call(ctx, legacy, legacyParams, out)
}

// formFields builds form fields from key/value pairs.
func formFields(pairs ...string) url.Values {
	v := url.Values{}
	for i := 0; i+1 < len(pairs); i += 2 {
		v.Set(pairs[i], pairs[i+1])
	}
	return v
}
