// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/lmsbridge/internal/database/query"
	"github.com/tomtom215/lmsbridge/internal/logging"
	"github.com/tomtom215/lmsbridge/internal/models"
)

const courseColumns = `course_id, name, short_name, description, category, lms, external_id, active, created_at, updated_at`

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SyncCourses upserts every course of one platform sync inside a single
// transaction. Rows are matched on CourseID; matching rows have every other
// field replaced. Any failing course rolls back the whole batch and no
// counts are reported.
func (db *DB) SyncCourses(ctx context.Context, platform models.Platform, courses []models.Course) (result models.SyncResult, err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return models.SyncResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			rollbackWithLog(tx, err)
		}
	}()

	now := db.now().UTC()
	for i := range courses {
		c := &courses[i]
		if c.LMS != platform {
			return models.SyncResult{}, fmt.Errorf("course %s belongs to %s, not %s", c.CourseID, c.LMS, platform)
		}
		inserted, upErr := db.upsertCourse(ctx, tx, c, now)
		if upErr != nil {
			return models.SyncResult{}, fmt.Errorf("sync %s course %s: %w", platform, c.CourseID, upErr)
		}
		if inserted {
			result.Synced++
		} else {
			result.Updated++
		}
	}

	if err = tx.Commit(); err != nil {
		return models.SyncResult{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	result.Status = "success"
	result.Platform = platform
	result.TotalProcessed = len(courses)

	logging.Debug().
		Str("platform", string(platform)).
		Int("synced", result.Synced).
		Int("updated", result.Updated).
		Int("total", result.TotalProcessed).
		Msg("Course sync transaction committed")

	return result, nil
}

// UpsertCourse inserts or updates a single course and reports whether it was
// inserted.
func (db *DB) UpsertCourse(ctx context.Context, c *models.Course) (bool, error) {
	return db.upsertCourse(ctx, db.conn, c, db.now().UTC())
}

func (db *DB) upsertCourse(ctx context.Context, q queryer, c *models.Course, now time.Time) (bool, error) {
	if c.CourseID == "" {
		return false, errors.New("course_id is required")
	}
	if c.Name == "" {
		return false, errors.New("course name is required")
	}
	if c.ShortName == "" {
		c.ShortName = c.Name
	}

	var count int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses WHERE course_id = ?`, c.CourseID).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to look up course: %w", err)
	}

	if count > 0 {
		_, err := q.ExecContext(ctx, `UPDATE courses
			SET name = ?, short_name = ?, description = ?, category = ?, external_id = ?, active = ?, updated_at = ?
			WHERE course_id = ?`,
			c.Name, c.ShortName, c.Description, c.Category, c.ExternalID, c.Active, now, c.CourseID)
		if err != nil {
			return false, fmt.Errorf("failed to update course: %w", err)
		}
		updated := now
		c.UpdatedAt = &updated
		return false, nil
	}

	_, err := q.ExecContext(ctx, `INSERT INTO courses (`+courseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		c.CourseID, c.Name, c.ShortName, c.Description, c.Category, string(c.LMS), c.ExternalID, c.Active, now)
	if err != nil {
		return false, fmt.Errorf("failed to insert course: %w", err)
	}
	c.CreatedAt = now
	return true, nil
}

// GetCourse returns one course by key.
func (db *DB) GetCourse(ctx context.Context, courseID string) (*models.Course, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+courseColumns+` FROM courses WHERE course_id = ?`, courseID)
	c, err := scanCourse(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("course", courseID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return c, nil
}

// CourseFilter narrows a course lookup. Zero fields match everything.
type CourseFilter struct {
	Platforms    []models.Platform
	Active       *bool
	Search       string
	UpdatedSince *time.Time
}

func (f CourseFilter) where() (string, []any) {
	platforms := make([]string, len(f.Platforms))
	for i, p := range f.Platforms {
		platforms[i] = string(p)
	}
	// Timestamps are stored in UTC.
	var since *time.Time
	if f.UpdatedSince != nil {
		u := f.UpdatedSince.UTC()
		since = &u
	}
	return query.NewWhereBuilder().
		AddPlatforms(platforms).
		AddActive(f.Active).
		AddUpdatedSince(since).
		AddSearch(f.Search).
		BuildWithPrefix()
}

// ListCourses returns the courses of one platform, or all courses when
// platform is empty, ordered by key.
func (db *DB) ListCourses(ctx context.Context, platform models.Platform) ([]models.Course, error) {
	return db.FindCourses(ctx, platformFilter(platform))
}

// FindCourses returns the courses matching filter, ordered by key.
func (db *DB) FindCourses(ctx context.Context, filter CourseFilter) ([]models.Course, error) {
	where, args := filter.where()
	rows, err := db.conn.QueryContext(ctx, `SELECT `+courseColumns+` FROM courses `+where+` ORDER BY course_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer rows.Close()

	courses := []models.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan course: %w", err)
		}
		courses = append(courses, *c)
	}
	return courses, rows.Err()
}

// CountCourses counts the courses of one platform, or all courses when
// platform is empty.
func (db *DB) CountCourses(ctx context.Context, platform models.Platform) (int, error) {
	where, args := platformFilter(platform).where()
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM courses `+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count courses: %w", err)
	}
	return n, nil
}

func platformFilter(platform models.Platform) CourseFilter {
	if platform == "" {
		return CourseFilter{}
	}
	return CourseFilter{Platforms: []models.Platform{platform}}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCourse(s scanner) (*models.Course, error) {
	var (
		c                                  models.Course
		lms                                string
		description, category, externalID sql.NullString
		updatedAt                          sql.NullTime
	)
	err := s.Scan(&c.CourseID, &c.Name, &c.ShortName, &description, &category, &lms,
		&externalID, &c.Active, &c.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.LMS = models.Platform(lms)
	c.Description = description.String
	c.Category = category.String
	c.ExternalID = externalID.String
	if updatedAt.Valid {
		t := updatedAt.Time
		c.UpdatedAt = &t
	}
	return &c, nil
}
