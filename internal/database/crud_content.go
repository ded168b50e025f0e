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

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/lmsbridge/internal/models"
)

const contentColumns = `id, course_id, title, content_type, content_data, file_path, file_name, file_size,
	mime_type, external_id, lms_resource_id, uploaded_by, active, created_at, updated_at`

// CreateContent inserts a content item for an existing course. An ID is
// generated when c.ID is empty.
func (db *DB) CreateContent(ctx context.Context, c *models.Content) error {
	if _, err := db.GetCourse(ctx, c.CourseID); err != nil {
		return err
	}
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	data, err := json.Marshal(c.Data)
	if err != nil {
		return fmt.Errorf("failed to encode content data: %w", err)
	}
	c.CreatedAt = db.now().UTC()

	_, err = db.conn.ExecContext(ctx, `INSERT INTO course_content (`+contentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		c.ID, c.CourseID, c.Title, string(c.ContentType), string(data), c.FilePath, c.FileName, c.FileSize,
		c.MimeType, c.ExternalID, c.LMSResourceID, c.UploadedBy, c.Active, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert content: %w", err)
	}
	return nil
}

// SetContentResourceID records the resource id an LMS assigned to a content item.
func (db *DB) SetContentResourceID(ctx context.Context, contentID, resourceID string) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE course_content SET lms_resource_id = ?, updated_at = ? WHERE id = ?`,
		resourceID, db.now().UTC(), contentID)
	if err != nil {
		return fmt.Errorf("failed to update content: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound("content", contentID)
	}
	return nil
}

// GetContent returns one content item.
func (db *DB) GetContent(ctx context.Context, id string) (*models.Content, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+contentColumns+` FROM course_content WHERE id = ?`, id)
	c, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("content", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get content: %w", err)
	}
	return c, nil
}

// ListContent returns the active content items of a course, oldest first.
func (db *DB) ListContent(ctx context.Context, courseID string) ([]models.Content, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+contentColumns+` FROM course_content WHERE course_id = ? AND active ORDER BY created_at, id`,
		courseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	defer rows.Close()

	items := []models.Content{}
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content: %w", err)
		}
		items = append(items, *c)
	}
	return items, rows.Err()
}

func scanContent(s scanner) (*models.Content, error) {
	var (
		c                                  models.Content
		contentType                        string
		data, filePath, fileName, mimeType sql.NullString
		externalID, resourceID, uploadedBy sql.NullString
		fileSize                           sql.NullInt64
		updatedAt                          sql.NullTime
	)
	err := s.Scan(&c.ID, &c.CourseID, &c.Title, &contentType, &data, &filePath, &fileName, &fileSize,
		&mimeType, &externalID, &resourceID, &uploadedBy, &c.Active, &c.CreatedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.ContentType = models.ContentType(contentType)
	if data.Valid && data.String != "" {
		if err := json.Unmarshal([]byte(data.String), &c.Data); err != nil {
			c.Data = models.ContentData{Text: data.String}
		}
	}
	c.FilePath = filePath.String
	c.FileName = fileName.String
	c.FileSize = fileSize.Int64
	c.MimeType = mimeType.String
	c.ExternalID = externalID.String
	c.LMSResourceID = resourceID.String
	c.UploadedBy = uploadedBy.String
	if updatedAt.Valid {
		t := updatedAt.Time
		c.UpdatedAt = &t
	}
	return &c, nil
}
