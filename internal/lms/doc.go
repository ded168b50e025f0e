// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

/*
Package lms integrates remote learning management systems with the local
course store.

Each supported platform has a Connector:

  - MoodleConnector: web service RPC through internal/moodle
  - CanvasConnector: REST API with a bearer token and Link pagination
  - SakaiConnector: /direct entity broker with a session held in the token manager
  - ChamiloConnector: REST v2 endpoint with username and API key

Service owns one connector per configured platform and provides course sync,
course create and update, content upload and connection tests.

# Course Sync

Sync fetches the full remote course list and upserts every course under the
key "{platform}_{external_id}" inside one store transaction. A failure at any
point rolls the transaction back and the error reaches the caller unchanged.

Every platform sync runs behind a resilience.Guard: the circuit
"sync_{platform}_courses" wraps a retry loop (3 attempts, 2s exponential
backoff by default). Remote writes use the circuit "{platform}_write" and are
not retried.

# Content Upload

AddContent commits the local content row first, then publishes it to the
course's LMS. A failed upload is logged and leaves lms_resource_id empty.
Upload is the strict variant that returns the failure.

# Thread Safety

Service is safe for concurrent use. Syncs of the same platform are
serialized; different platforms sync in parallel.
*/
package lms
