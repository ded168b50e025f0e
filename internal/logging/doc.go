// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

// Package logging provides centralized zerolog-based structured logging for LMSBridge.
//
// # Overview
//
// The package provides:
//   - Zero-allocation structured logging via zerolog
//   - JSON output for production and console output for development
//   - Optional rotating log file output via lumberjack
//   - Correlation ID propagation through context.Context
//   - Secret redaction for LMS credentials (Moodle wstoken, Canvas bearer tokens, API keys)
//   - An slog adapter so Suture can log through zerolog
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	})
//
//	logging.Info().Str("platform", "moodle").Int("synced", 12).Msg("Course sync completed")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Upload to LMS failed")
//
// # Secrets
//
// Anything derived from an outbound LMS request (URLs, form bodies, transport
// errors) must pass through RedactSecrets before it reaches a log line or an
// error message:
//
//	logging.Warn().Str("url", logging.RedactSecrets(req.URL.String())).Msg("Request failed")
//
// # Configuration
//
//	LOG_LEVEL        - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT       - json, console (default: json)
//	LOG_CALLER       - include caller file:line (default: false)
//	LOG_FILE         - optional path; enables size-based rotation
//	LOG_MAX_SIZE_MB  - rotate after this many megabytes (default: 100)
//	LOG_MAX_BACKUPS  - rotated files to keep (default: 7)
//	LOG_MAX_AGE_DAYS - days to keep rotated files (default: 7)
//
// # Testing
//
//	var buf bytes.Buffer
//	logger := logging.NewTestLogger(&buf)
//	logger.Info().Msg("test message")
package logging
