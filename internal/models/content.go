// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package models

import "time"

// ContentType is the kind of course content item.
type ContentType string

// Content types accepted by the upload protocol.
const (
	ContentFile ContentType = "file"
	ContentURL  ContentType = "url"
	ContentText ContentType = "text"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	switch t {
	case ContentFile, ContentURL, ContentText:
		return true
	}
	return false
}

// ContentData carries the non-file payload of a content item.
type ContentData struct {
	URL         string `json:"url,omitempty"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text,omitempty"`
}

// Content is a course content item stored locally and optionally mirrored to
// the course's LMS. LMSResourceID is set once the remote upload succeeds.
type Content struct {
	ID            string      `json:"id"`
	CourseID      string      `json:"course_id" validate:"required"`
	Title         string      `json:"title" validate:"required,max=255"`
	ContentType   ContentType `json:"content_type" validate:"required,oneof=file url text"`
	Data          ContentData `json:"content_data"`
	FilePath      string      `json:"file_path,omitempty"`
	FileName      string      `json:"file_name,omitempty"`
	FileSize      int64       `json:"file_size,omitempty"`
	MimeType      string      `json:"mime_type,omitempty"`
	ExternalID    string      `json:"external_id,omitempty"`
	LMSResourceID string      `json:"lms_resource_id,omitempty"`
	UploadedBy    string      `json:"uploaded_by,omitempty"`
	Active        bool        `json:"active"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     *time.Time  `json:"updated_at,omitempty"`
}
