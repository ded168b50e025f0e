// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package models

import (
	"time"
)

// APIResponse is the envelope every ops API endpoint returns.
//
// Success:
//
//	{
//	  "status": "success",
//	  "data": {"is_running": true, "sync_interval": 300, ...},
//	  "metadata": {"timestamp": "2026-01-12T09:00:00Z", "request_id": "..."}
//	}
//
// Error:
//
//	{
//	  "status": "error",
//	  "data": null,
//	  "error": {"code": "CIRCUIT_OPEN", "message": "circuit sync_canvas_courses is open"},
//	  "metadata": {"timestamp": "2026-01-12T09:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata accompanies every response.
type Metadata struct {
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
}

// APIError carries a machine-readable code plus a human message. Details
// holds the offending field for validation failures and the platform for
// LMS failures.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ForceSyncRequest is the body of a force sync call. An empty LMSType syncs
// every configured platform.
type ForceSyncRequest struct {
	LMSType string `json:"lms_type,omitempty" validate:"omitempty,lmsplatform"`
}

// SyncIntervalRequest changes the background sync interval.
type SyncIntervalRequest struct {
	IntervalSeconds int `json:"interval_seconds" validate:"required,min=60"`
}

// HealthStatus is the readiness report.
type HealthStatus struct {
	Status            string     `json:"status"` // healthy or degraded
	DatabaseConnected bool       `json:"database_connected"`
	SchedulerRunning  bool       `json:"scheduler_running"`
	ConfiguredLMS     []Platform `json:"configured_lms"`
	UptimeSeconds     float64    `json:"uptime_seconds"`
}
