// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

/*
database_schema.go - Database Schema Management

Tables:
  - courses: one row per course, keyed by course_id ("{platform}_{external_id}"
    for synced courses)
  - course_content: course content items with the LMS resource id recorded
    after a successful remote upload

The statements are valid for both DuckDB and SQLite. Columns that are part of
an index are never updated in place because DuckDB rewrites such rows.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func tableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS courses (
			course_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			short_name TEXT NOT NULL,
			description TEXT,
			category TEXT,
			lms TEXT NOT NULL,
			external_id TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS course_content (
			id TEXT PRIMARY KEY,
			course_id TEXT NOT NULL,
			title TEXT NOT NULL,
			content_type TEXT NOT NULL,
			content_data TEXT,
			file_path TEXT,
			file_name TEXT,
			file_size BIGINT,
			mime_type TEXT,
			external_id TEXT,
			lms_resource_id TEXT,
			uploaded_by TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_course_content_course ON course_content(course_id)`,
	}
}
