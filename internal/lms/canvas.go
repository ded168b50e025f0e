// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

/*
canvas.go - Canvas REST API Connector

Courses are listed from /api/v1/courses (teacher enrollments, available and
completed states) following Link header pagination. Files use the three step
upload protocol: request an upload slot, post the bytes to the returned
upload_url, then confirm through the Location the upload answers with.

API Reference: https://canvas.instructure.com/doc/api/
*/

package lms

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/models"
	"github.com/tomtom215/lmsbridge/internal/resilience"
)

const (
	canvasCategory   = "Canvas"
	canvasPageSize   = 100
	canvasMaxPages   = 50
	canvasFileFolder = "/course files"
)

// Ensure CanvasConnector implements Connector
var _ Connector = (*CanvasConnector)(nil)

// CanvasConfig configures a CanvasConnector.
type CanvasConfig struct {
	BaseURL   string
	Token     string
	AccountID string

	// HTTP serves API calls; Upload serves file transfers and may carry a
	// longer timeout. Upload defaults to HTTP.
	HTTP   *resilience.RobustClient
	Upload *resilience.RobustClient
}

// CanvasConnector talks to the Canvas REST API with a bearer token.
type CanvasConnector struct {
	base    string
	token   string
	account string
	http    *resilience.RobustClient
	upload  *resilience.RobustClient

	maxPages int
}

type canvasCourse struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	CourseCode        string  `json:"course_code"`
	PublicDescription *string `json:"public_description"`
}

func (c canvasCourse) remote() models.RemoteCourse {
	rc := models.RemoteCourse{
		ExternalID: strconv.FormatInt(c.ID, 10),
		Name:       c.Name,
		ShortName:  c.CourseCode,
		Category:   canvasCategory,
	}
	if c.PublicDescription != nil {
		rc.Description = *c.PublicDescription
	}
	return rc
}

// NewCanvasConnector validates cfg and returns a connector.
func NewCanvasConnector(cfg CanvasConfig) (*CanvasConnector, error) {
	if err := requireURL(models.PlatformCanvas, cfg.BaseURL); err != nil {
		return nil, err
	}
	if cfg.Token == "" {
		return nil, lmserr.New(lmserr.KindConfiguration, "CANVAS_TOKEN must be configured").
			WithPlatform(string(models.PlatformCanvas), "configure")
	}
	if cfg.HTTP == nil {
		cfg.HTTP = resilience.NewRobustClient(resilience.DefaultHTTPClientOptions())
	}
	if cfg.Upload == nil {
		cfg.Upload = cfg.HTTP
	}
	if cfg.AccountID == "" {
		cfg.AccountID = "1"
	}
	return &CanvasConnector{
		base:    normalizeBase(cfg.BaseURL),
		token:   cfg.Token,
		account: cfg.AccountID,
		http:    cfg.HTTP,
		upload:  cfg.Upload,

		maxPages: canvasMaxPages,
	}, nil
}

// Platform implements Connector.
func (c *CanvasConnector) Platform() models.Platform { return models.PlatformCanvas }

func (c *CanvasConnector) api(format string, args ...any) string {
	return c.base + "/api/v1" + fmt.Sprintf(format, args...)
}

// FetchCourses implements Connector. A listing that still has a next page
// after maxPages pages fails rather than returning a partial catalogue.
func (c *CanvasConnector) FetchCourses(ctx context.Context) ([]models.RemoteCourse, error) {
	const op = "list_courses"
	q := url.Values{}
	q.Set("enrollment_type", "teacher")
	q.Add("state[]", "available")
	q.Add("state[]", "completed")
	q.Set("per_page", strconv.Itoa(canvasPageSize))
	next := c.api("/courses") + "?" + q.Encode()

	var out []models.RemoteCourse
	for page := 0; next != ""; page++ {
		if page >= c.maxPages {
			e := lmserr.Newf(lmserr.KindIntegration, "Canvas course listing exceeds %d pages", c.maxPages)
			e.Code = "pagination_limit"
			return nil, e.WithPlatform(string(models.PlatformCanvas), op)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, next, http.NoBody)
		if err != nil {
			return nil, tag(err, models.PlatformCanvas, op)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, tag(err, models.PlatformCanvas, op)
		}
		var courses []canvasCourse
		decodeErr := json.NewDecoder(resp.Body).Decode(&courses)
		_ = resp.Body.Close()
		if decodeErr != nil {
			return nil, lmserr.Wrap(lmserr.KindIntegration, "invalid JSON response from Canvas", decodeErr).
				WithPlatform(string(models.PlatformCanvas), op)
		}
		for _, cc := range courses {
			out = append(out, cc.remote())
		}
		next = nextLink(resp.Header.Get("Link"))
	}
	return out, nil
}

// nextLink extracts the rel="next" target of an RFC 8288 Link header.
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		target := strings.TrimSpace(segs[0])
		if !strings.HasPrefix(target, "<") || !strings.HasSuffix(target, ">") {
			continue
		}
		for _, param := range segs[1:] {
			if strings.TrimSpace(param) == `rel="next"` {
				return target[1 : len(target)-1]
			}
		}
	}
	return ""
}

type canvasCourseBody struct {
	Course canvasCourseFields `json:"course"`
}

type canvasCourseFields struct {
	Name              string `json:"name,omitempty"`
	CourseCode        string `json:"course_code,omitempty"`
	PublicDescription string `json:"public_description,omitempty"`
}

func canvasFields(in models.CourseInput) canvasCourseBody {
	return canvasCourseBody{Course: canvasCourseFields{
		Name:              in.Name,
		CourseCode:        in.ShortName,
		PublicDescription: in.Description,
	}}
}

// CreateCourse implements Connector.
func (c *CanvasConnector) CreateCourse(ctx context.Context, in models.CourseInput) (models.RemoteCourse, error) {
	var created canvasCourse
	err := c.http.SendJSON(ctx, http.MethodPost, c.api("/accounts/%s/courses", url.PathEscape(c.account)),
		bearer(c.token), canvasFields(in), &created)
	if err != nil {
		return models.RemoteCourse{}, tag(err, models.PlatformCanvas, "create_course")
	}
	return created.remote(), nil
}

// UpdateCourse implements Connector.
func (c *CanvasConnector) UpdateCourse(ctx context.Context, externalID string, in models.CourseInput) (models.RemoteCourse, error) {
	var updated canvasCourse
	err := c.http.SendJSON(ctx, http.MethodPut, c.api("/courses/%s", url.PathEscape(externalID)),
		bearer(c.token), canvasFields(in), &updated)
	if err != nil {
		return models.RemoteCourse{}, tag(err, models.PlatformCanvas, "update_course")
	}
	return updated.remote(), nil
}

// Upload implements Connector.
func (c *CanvasConnector) Upload(ctx context.Context, externalCourseID string, item *models.Content) (string, error) {
	switch item.ContentType {
	case models.ContentFile:
		return c.uploadFile(ctx, externalCourseID, item)
	case models.ContentURL:
		return c.addExternalTool(ctx, externalCourseID, item)
	case models.ContentText:
		return c.addPage(ctx, externalCourseID, item)
	default:
		return "", lmserr.Newf(lmserr.KindValidation, "Unsupported content type: %s", item.ContentType).
			WithPlatform(string(models.PlatformCanvas), "upload")
	}
}

type canvasUploadSlot struct {
	UploadURL    string         `json:"upload_url"`
	UploadParams map[string]any `json:"upload_params"`
}

type canvasID struct {
	ID     int64 `json:"id"`
	PageID int64 `json:"page_id"`
}

func (c *CanvasConnector) uploadFile(ctx context.Context, courseID string, item *models.Content) (string, error) {
	const op = "upload_file"
	f, err := readUpload(models.PlatformCanvas, item)
	if err != nil {
		return "", err
	}

	// Step 1: request an upload slot
	form := url.Values{}
	form.Set("name", f.name)
	form.Set("size", strconv.Itoa(len(f.data)))
	form.Set("content_type", f.mimeType)
	form.Set("parent_folder_path", canvasFileFolder)
	var slot canvasUploadSlot
	if err := c.http.PostForm(ctx, c.api("/courses/%s/files", url.PathEscape(courseID)), bearer(c.token), form, &slot); err != nil {
		return "", tag(err, models.PlatformCanvas, op)
	}
	if slot.UploadURL == "" {
		return "", lmserr.New(lmserr.KindIntegration, "Canvas returned no upload_url").
			WithPlatform(string(models.PlatformCanvas), op)
	}

	// Step 2: post the bytes with the slot parameters
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range slot.UploadParams {
		if err := mw.WriteField(k, fmt.Sprint(v)); err != nil {
			return "", lmserr.Wrap(lmserr.KindRequest, "build upload form", err).WithPlatform(string(models.PlatformCanvas), op)
		}
	}
	part, err := mw.CreateFormFile("file", f.name)
	if err == nil {
		_, err = part.Write(f.data)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return "", lmserr.Wrap(lmserr.KindRequest, "build upload form", err).WithPlatform(string(models.PlatformCanvas), op)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, slot.UploadURL, bytes.NewReader(body.Bytes()))
	if err != nil {
		return "", tag(err, models.PlatformCanvas, op)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.upload.Do(req)
	if err != nil {
		return "", tag(err, models.PlatformCanvas, op)
	}
	location := resp.Header.Get("Location")
	var uploaded canvasID
	decodeErr := json.NewDecoder(resp.Body).Decode(&uploaded)
	_ = resp.Body.Close()

	// Step 3: confirm through the Location the upload answered with
	if location != "" {
		var confirmed canvasID
		if err := c.http.GetJSON(ctx, location, bearer(c.token), &confirmed); err != nil {
			return "", tag(err, models.PlatformCanvas, op)
		}
		uploaded = confirmed
	} else if decodeErr != nil {
		return "", lmserr.Wrap(lmserr.KindIntegration, "invalid JSON response from Canvas upload", decodeErr).
			WithPlatform(string(models.PlatformCanvas), op)
	}

	if uploaded.ID == 0 {
		return "", lmserr.New(lmserr.KindIntegration, "Canvas upload returned no file id").
			WithPlatform(string(models.PlatformCanvas), op)
	}
	return strconv.FormatInt(uploaded.ID, 10), nil
}

func (c *CanvasConnector) addExternalTool(ctx context.Context, courseID string, item *models.Content) (string, error) {
	body := map[string]any{
		"name":          item.Title,
		"url":           item.Data.URL,
		"description":   item.Data.Description,
		"privacy_level": "public",
	}
	var created canvasID
	err := c.http.SendJSON(ctx, http.MethodPost, c.api("/courses/%s/external_tools", url.PathEscape(courseID)),
		bearer(c.token), body, &created)
	if err != nil {
		return "", tag(err, models.PlatformCanvas, "add_url")
	}
	return strconv.FormatInt(created.ID, 10), nil
}

func (c *CanvasConnector) addPage(ctx context.Context, courseID string, item *models.Content) (string, error) {
	body := map[string]any{
		"wiki_page": map[string]any{
			"title":     item.Title,
			"body":      item.Data.Text,
			"published": true,
		},
	}
	var created canvasID
	err := c.http.SendJSON(ctx, http.MethodPost, c.api("/courses/%s/pages", url.PathEscape(courseID)),
		bearer(c.token), body, &created)
	if err != nil {
		return "", tag(err, models.PlatformCanvas, "add_page")
	}
	return strconv.FormatInt(created.PageID, 10), nil
}

// TestConnection implements Connector.
func (c *CanvasConnector) TestConnection(ctx context.Context) (string, error) {
	var self struct {
		Name string `json:"name"`
	}
	if err := c.http.GetJSON(ctx, c.api("/users/self"), bearer(c.token), &self); err != nil {
		return "", tag(err, models.PlatformCanvas, "test_connection")
	}
	name := self.Name
	if name == "" {
		name = "Canvas User"
	}
	return "Connected as " + name, nil
}
