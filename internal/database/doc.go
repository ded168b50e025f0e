// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

// Package database is the local course and content store.
//
// # Overview
//
// The store keeps one row per course keyed by "{platform}_{external_id}" and
// the content items attached to those courses. It runs on DuckDB by default
// (github.com/duckdb/duckdb-go/v2) or on SQLite (modernc.org/sqlite) when
// DB_DRIVER=sqlite; the schema and queries are shared by both.
//
// Files:
//   - database.go: connection lifecycle and driver selection
//   - database_schema.go: table and index creation
//   - crud_courses.go: transactional course sync and single-course upserts
//   - crud_content.go: content items and their LMS resource ids
//
// # Sync Semantics
//
// SyncCourses applies one platform's full course list in a single
// transaction. A failure on any course rolls the whole batch back, so a sync
// either lands completely or not at all.
package database
