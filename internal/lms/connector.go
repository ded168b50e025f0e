// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package lms

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/models"
)

// Connector is the remote half of one LMS platform.
type Connector interface {
	// Platform identifies the LMS.
	Platform() models.Platform

	// FetchCourses returns the full remote course list.
	FetchCourses(ctx context.Context) ([]models.RemoteCourse, error)

	// CreateCourse creates a course remotely and returns the created record.
	CreateCourse(ctx context.Context, in models.CourseInput) (models.RemoteCourse, error)

	// UpdateCourse updates the remote course identified by externalID.
	UpdateCourse(ctx context.Context, externalID string, in models.CourseInput) (models.RemoteCourse, error)

	// Upload publishes item to the remote course and returns the resource id
	// the LMS assigned to it.
	Upload(ctx context.Context, externalCourseID string, item *models.Content) (string, error)

	// TestConnection performs a cheap authenticated call and describes the result.
	TestConnection(ctx context.Context) (string, error)
}

// Store is the local persistence the service mirrors remote state into.
type Store interface {
	SyncCourses(ctx context.Context, platform models.Platform, courses []models.Course) (models.SyncResult, error)
	UpsertCourse(ctx context.Context, c *models.Course) (bool, error)
	GetCourse(ctx context.Context, courseID string) (*models.Course, error)
	CreateContent(ctx context.Context, c *models.Content) error
	SetContentResourceID(ctx context.Context, contentID, resourceID string) error
}

// unsupported reports an operation a platform does not offer.
func unsupported(p models.Platform, op string) error {
	e := lmserr.Newf(lmserr.KindIntegration, "%s does not support %s", p, op)
	e.Code = "unsupported"
	return e.WithPlatform(string(p), op)
}

// tag attaches the platform and operation to err.
func tag(err error, p models.Platform, op string) error {
	if err == nil {
		return nil
	}
	return lmserr.FromTransport(err).WithPlatform(string(p), op)
}

// uploadFile reads the local file behind a file content item.
type uploadFile struct {
	name     string
	mimeType string
	data     []byte
}

func readUpload(p models.Platform, item *models.Content) (*uploadFile, error) {
	if item.FilePath == "" {
		e := lmserr.New(lmserr.KindValidation, "file content requires a file path")
		e.Code = "required"
		return nil, e.WithPlatform(string(p), "upload")
	}
	data, err := os.ReadFile(item.FilePath)
	if err != nil {
		return nil, lmserr.Wrap(lmserr.KindRequest, "read upload file", err).WithPlatform(string(p), "upload")
	}

	f := &uploadFile{name: item.FileName, mimeType: item.MimeType, data: data}
	if f.name == "" {
		f.name = filepath.Base(item.FilePath)
	}
	if f.mimeType == "" {
		f.mimeType = mime.TypeByExtension(filepath.Ext(f.name))
	}
	if f.mimeType == "" {
		f.mimeType = "application/octet-stream"
	}
	return f, nil
}

func bearer(token string) http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+token)
	return h
}

func normalizeBase(raw string) string {
	return strings.TrimRight(strings.TrimSpace(raw), "/")
}

func requireURL(p models.Platform, raw string) error {
	if raw == "" {
		return lmserr.New(lmserr.KindConfiguration, fmt.Sprintf("%s URL must be configured", strings.ToUpper(string(p)))).
			WithPlatform(string(p), "configure")
	}
	return nil
}
