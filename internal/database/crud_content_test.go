// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package database

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/models"
)

func TestCreateContent(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		ctx := context.Background()
		_, err := db.SyncCourses(ctx, models.PlatformMoodle, moodleCourses("Biology"))
		checkNoError(t, err)

		item := &models.Content{
			CourseID:    "moodle_1",
			Title:       "Reading list",
			ContentType: models.ContentURL,
			Data:        models.ContentData{URL: "https://example.com/list", Description: "Week 1"},
			Active:      true,
		}
		checkNoError(t, db.CreateContent(ctx, item))
		if item.ID == "" {
			t.Fatal("expected generated id")
		}

		got, err := db.GetContent(ctx, item.ID)
		checkNoError(t, err)
		checkStringEqual(t, "title", got.Title, "Reading list")
		checkStringEqual(t, "url", got.Data.URL, "https://example.com/list")
		checkStringEqual(t, "lms_resource_id", got.LMSResourceID, "")
		if got.ContentType != models.ContentURL {
			t.Errorf("content type = %q", got.ContentType)
		}

		checkNoError(t, db.SetContentResourceID(ctx, item.ID, "77"))
		got, err = db.GetContent(ctx, item.ID)
		checkNoError(t, err)
		checkStringEqual(t, "lms_resource_id", got.LMSResourceID, "77")
		if got.UpdatedAt == nil {
			t.Error("updated_at should be set")
		}

		list, err := db.ListContent(ctx, "moodle_1")
		checkNoError(t, err)
		checkIntEqual(t, "items", len(list), 1)
	})
}

func TestCreateContent_UnknownCourse(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		err := db.CreateContent(context.Background(), &models.Content{
			CourseID:    "moodle_404",
			Title:       "x",
			ContentType: models.ContentText,
		})
		if !errors.Is(err, lmserr.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestSetContentResourceID_NotFound(t *testing.T) {
	forEachDriver(t, func(t *testing.T, db *DB) {
		err := db.SetContentResourceID(context.Background(), "missing", "1")
		if !errors.Is(err, lmserr.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}
