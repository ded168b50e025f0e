// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

/*
Package api serves the LMSBridge operations HTTP surface on a chi router.

The surface is deliberately small: probes, scheduler control, circuit breaker
state, LMS connection tests and Prometheus metrics. Course and content CRUD is
not exposed here.

Every JSON response uses the models.APIResponse envelope:

	{"status": "success", "data": {...}, "metadata": {"timestamp": "...", "request_id": "..."}}

Errors carry a code derived from the lmserr kind (or the remote code when the
LMS reported one) and the HTTP status from lmserr.StatusOf. An open circuit
therefore answers 503 CIRCUIT_OPEN and an expired LMS token 401 TOKEN_EXPIRED.

Middleware, outermost first:
  - RequestIDWithLogging: X-Request-Id plus a correlation ID on the context
  - chi RealIP and Recoverer
  - RequestLogger: zerolog line per request
  - PrometheusMetrics: api_requests_total by route pattern (not on probes)
  - RateLimit: go-chi/httprate per client IP (not on probes)
*/
package api
