// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

// Package metrics exposes Prometheus instrumentation for LMSBridge:
// LMS course sync, the Moodle web service client, the robust HTTP client,
// circuit breakers, session tokens and the operations API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
)

var (
	// Sync Metrics
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lms_sync_duration_seconds",
			Help:    "Duration of LMS course sync operations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"platform"},
	)

	SyncCourses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_sync_courses_total",
			Help: "Total number of courses written by sync",
		},
		[]string{"platform", "action"}, // action: "inserted", "updated"
	)

	SyncErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_sync_errors_total",
			Help: "Total number of failed sync operations",
		},
		[]string{"platform", "error_kind"},
	)

	SyncLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lms_sync_last_success_timestamp",
			Help: "Unix timestamp of the last successful sync",
		},
		[]string{"platform"},
	)

	SyncLoopPanics = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lms_sync_loop_panics_total",
			Help: "Total number of panics recovered in the sync loop",
		},
	)

	// Moodle Web Service Metrics
	MoodleCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodle_ws_calls_total",
			Help: "Total number of Moodle web service calls",
		},
		[]string{"wsfunction", "outcome"}, // outcome: "success" or an error kind
	)

	MoodleCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "moodle_ws_call_duration_seconds",
			Help:    "Duration of Moodle web service calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"wsfunction"},
	)

	MoodleRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodle_ws_retries_total",
			Help: "Total number of retried idempotent Moodle calls",
		},
		[]string{"wsfunction"},
	)

	MoodleFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "moodle_ws_fallbacks_total",
			Help: "Total number of calls served by a legacy fallback function",
		},
		[]string{"wsfunction"},
	)

	// Robust HTTP Client Metrics
	HTTPClientRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_http_client_requests_total",
			Help: "Total number of outbound LMS HTTP requests",
		},
		[]string{"host", "method", "status"},
	)

	HTTPClientRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_http_client_retries_total",
			Help: "Total number of outbound LMS HTTP retries",
		},
		[]string{"host", "reason"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected", "ignored"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Token Metrics
	TokenRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lms_token_refreshes_total",
			Help: "Total number of LMS session token refresh attempts",
		},
		[]string{"service", "result"},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of operations API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of operations API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// RecordSyncOperation records one platform sync.
func RecordSyncOperation(platform string, duration time.Duration, inserted, updated int, err error) {
	SyncDuration.WithLabelValues(platform).Observe(duration.Seconds())
	if err != nil {
		SyncErrors.WithLabelValues(platform, lmserr.KindOf(err).String()).Inc()
		return
	}
	SyncCourses.WithLabelValues(platform, "inserted").Add(float64(inserted))
	SyncCourses.WithLabelValues(platform, "updated").Add(float64(updated))
	SyncLastSuccess.WithLabelValues(platform).Set(float64(time.Now().Unix()))
}

// RecordMoodleCall records a Moodle web service call outcome.
func RecordMoodleCall(wsfunction string, duration time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = lmserr.KindOf(err).String()
	}
	MoodleCalls.WithLabelValues(wsfunction, outcome).Inc()
	MoodleCallDuration.WithLabelValues(wsfunction).Observe(duration.Seconds())
}

// RecordHTTPClientRequest records an outbound request. A zero status means no response.
func RecordHTTPClientRequest(host, method string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	HTTPClientRequests.WithLabelValues(host, method, label).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordTokenRefresh records a session token refresh attempt.
func RecordTokenRefresh(service string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	TokenRefreshes.WithLabelValues(service, result).Inc()
}
