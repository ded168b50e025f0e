// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package models

import (
	"fmt"
	"strings"
	"time"
)

// Platform identifies an LMS a course belongs to.
type Platform string

// Supported platforms. PlatformLocal marks courses created without a remote.
const (
	PlatformMoodle  Platform = "moodle"
	PlatformCanvas  Platform = "canvas"
	PlatformSakai   Platform = "sakai"
	PlatformChamilo Platform = "chamilo"
	PlatformLocal   Platform = "local"
)

// RemotePlatforms lists the platforms that can be synchronized, in sync order.
var RemotePlatforms = []Platform{PlatformMoodle, PlatformCanvas, PlatformSakai, PlatformChamilo}

// ParsePlatform resolves a case-insensitive platform name. Only remote
// platforms are accepted.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range RemotePlatforms {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unsupported LMS type: %q", s)
}

// String implements fmt.Stringer.
func (p Platform) String() string { return string(p) }

// CourseKey builds the local course key for a remote course.
func CourseKey(p Platform, externalID string) string {
	return string(p) + "_" + externalID
}

// Course is a locally stored course row. CourseID is the stable key
// "{platform}_{external_id}" for synced courses.
type Course struct {
	CourseID    string     `json:"course_id"`
	Name        string     `json:"name"`
	ShortName   string     `json:"short_name"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	LMS         Platform   `json:"lms"`
	ExternalID  string     `json:"external_id"`
	Active      bool       `json:"active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// RemoteCourse is a course as reported by an LMS before it is keyed locally.
type RemoteCourse struct {
	ExternalID  string `json:"external_id"`
	Name        string `json:"name"`
	ShortName   string `json:"short_name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// ToCourse keys the remote course under platform p.
func (r RemoteCourse) ToCourse(p Platform) Course {
	return Course{
		CourseID:    CourseKey(p, r.ExternalID),
		Name:        r.Name,
		ShortName:   r.ShortName,
		Description: r.Description,
		Category:    r.Category,
		LMS:         p,
		ExternalID:  r.ExternalID,
		Active:      true,
	}
}

// CourseInput is the data needed to create or update a course on an LMS.
type CourseInput struct {
	Name        string `json:"name" validate:"required,max=254"`
	ShortName   string `json:"short_name" validate:"required,max=100"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty" validate:"omitempty,max=100"`
	// CategoryID is the remote category for platforms that need one (Moodle).
	CategoryID int `json:"category_id,omitempty" validate:"omitempty,min=1"`
}

// SyncResult reports the outcome of one platform sync.
type SyncResult struct {
	Status         string   `json:"status"`
	Platform       Platform `json:"platform"`
	Synced         int      `json:"synced"`
	Updated        int      `json:"updated"`
	TotalProcessed int      `json:"total_processed"`
}

// ConnectionResult is the outcome of a platform connection test.
type ConnectionResult struct {
	Platform Platform `json:"platform"`
	OK       bool     `json:"ok"`
	Message  string   `json:"message"`
}

// SyncStatus is a snapshot of the background synchronizer.
type SyncStatus struct {
	IsRunning           bool                   `json:"is_running"`
	SyncIntervalSeconds int                    `json:"sync_interval"`
	LastSync            map[Platform]time.Time `json:"last_sync"`
	ConfiguredLMS       []Platform             `json:"configured_lms"`
}
