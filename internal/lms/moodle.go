// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package lms

import (
	"context"
	"strconv"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/models"
	"github.com/tomtom215/lmsbridge/internal/moodle"
)

const (
	defaultMoodleCategory = "General"
	moodleFileIntro       = "Uploaded via LMS API"
	moodlePageIntro       = "Text content uploaded via LMS API"
)

// Ensure MoodleConnector implements Connector
var _ Connector = (*MoodleConnector)(nil)

// MoodleConnector adapts the Moodle web service client.
type MoodleConnector struct {
	client *moodle.Client
}

// NewMoodleConnector wraps client.
func NewMoodleConnector(client *moodle.Client) *MoodleConnector {
	return &MoodleConnector{client: client}
}

// Platform implements Connector.
func (m *MoodleConnector) Platform() models.Platform { return models.PlatformMoodle }

// FetchCourses implements Connector.
func (m *MoodleConnector) FetchCourses(ctx context.Context) ([]models.RemoteCourse, error) {
	courses, err := m.client.ListCourses(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.RemoteCourse, 0, len(courses))
	for i := range courses {
		out = append(out, moodleCourse(&courses[i]))
	}
	return out, nil
}

func moodleCourse(c *moodle.Course) models.RemoteCourse {
	category := c.CategoryName
	if category == "" {
		category = defaultMoodleCategory
	}
	return models.RemoteCourse{
		ExternalID:  strconv.Itoa(c.ID),
		Name:        c.FullName,
		ShortName:   c.ShortName,
		Description: c.Summary,
		Category:    category,
	}
}

// CreateCourse implements Connector. Moodle requires a category id; the
// top-level category 1 is used when none is given.
func (m *MoodleConnector) CreateCourse(ctx context.Context, in models.CourseInput) (models.RemoteCourse, error) {
	categoryID := in.CategoryID
	if categoryID == 0 {
		categoryID = 1
	}
	created, err := m.client.CreateCourse(ctx, moodle.NewCourse{
		FullName:   in.Name,
		ShortName:  in.ShortName,
		CategoryID: categoryID,
		Summary:    in.Description,
	})
	if err != nil {
		return models.RemoteCourse{}, err
	}
	rc := moodleCourse(created)
	if rc.ShortName == "" {
		rc.ShortName = in.ShortName
	}
	if in.Category != "" {
		rc.Category = in.Category
	}
	return rc, nil
}

// UpdateCourse implements Connector.
func (m *MoodleConnector) UpdateCourse(ctx context.Context, externalID string, in models.CourseInput) (models.RemoteCourse, error) {
	id, err := moodleID(externalID, "core_course_update_courses")
	if err != nil {
		return models.RemoteCourse{}, err
	}
	update := moodle.CourseUpdate{
		ID:         id,
		FullName:   in.Name,
		ShortName:  in.ShortName,
		CategoryID: in.CategoryID,
		Summary:    in.Description,
	}
	if err := m.client.UpdateCourse(ctx, update); err != nil {
		return models.RemoteCourse{}, err
	}
	category := in.Category
	if category == "" {
		category = defaultMoodleCategory
	}
	return models.RemoteCourse{
		ExternalID:  externalID,
		Name:        in.Name,
		ShortName:   in.ShortName,
		Description: in.Description,
		Category:    category,
	}, nil
}

// Upload implements Connector. Files are staged in the draft area and then
// attached to a new resource module; URLs and text become url and page modules.
func (m *MoodleConnector) Upload(ctx context.Context, externalCourseID string, item *models.Content) (string, error) {
	courseID, err := moodleID(externalCourseID, "upload")
	if err != nil {
		return "", err
	}

	var res *moodle.Resource
	switch item.ContentType {
	case models.ContentFile:
		f, err := readUpload(models.PlatformMoodle, item)
		if err != nil {
			return "", err
		}
		staged, err := m.client.UploadFile(ctx, f.data, f.name, moodle.UploadOptions{MimeType: f.mimeType})
		if err != nil {
			return "", err
		}
		res, err = m.client.AttachFileToCourseResource(ctx, courseID, staged.ItemID, item.Title, f.name, moodleFileIntro)
		if err != nil {
			return "", err
		}
	case models.ContentURL:
		res, err = m.client.AddURLToCourse(ctx, courseID, item.Title, item.Data.URL, item.Data.Description)
		if err != nil {
			return "", err
		}
	case models.ContentText:
		res, err = m.client.AddPageToCourse(ctx, courseID, item.Title, item.Data.Text, moodlePageIntro)
		if err != nil {
			return "", err
		}
	default:
		return "", lmserr.Newf(lmserr.KindValidation, "Unsupported content type: %s", item.ContentType).
			WithPlatform(moodle.Platform, "upload")
	}
	return strconv.Itoa(res.ID), nil
}

// TestConnection implements Connector.
func (m *MoodleConnector) TestConnection(ctx context.Context) (string, error) {
	info, err := m.client.GetSiteInfo(ctx)
	if err != nil {
		return "", err
	}
	name := info.SiteName
	if name == "" {
		name = "Moodle"
	}
	return "Connected to " + name, nil
}

func moodleID(externalID, op string) (int, error) {
	id, err := strconv.Atoi(externalID)
	if err != nil || id < 1 {
		return 0, lmserr.Newf(lmserr.KindValidation, "invalid Moodle course id %q", externalID).
			WithPlatform(moodle.Platform, op)
	}
	return id, nil
}
