// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package moodle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
)

const uploadOp = "webservice/upload.php"

// UploadFile stages a file in a Moodle file area (the user draft area by
// default). The returned ItemID is passed to AttachFileToCourseResource.
func (c *Client) UploadFile(ctx context.Context, data []byte, filename string, opts UploadOptions) (*UploadedFile, error) {
	if filename == "" {
		e := lmserr.New(lmserr.KindValidation, "filename is required")
		e.Code = "required"
		return nil, e.WithPlatform(Platform, uploadOp)
	}
	if opts.ContextID == 0 {
		opts.ContextID = 1
	}
	if opts.Component == "" {
		opts.Component = "user"
	}
	if opts.FileArea == "" {
		opts.FileArea = "draft"
	}
	if opts.MimeType == "" {
		opts.MimeType = "application/octet-stream"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fields := formFields(
		"token", c.token,
		"component", opts.Component,
		"filearea", opts.FileArea,
		"itemid", strconv.Itoa(opts.ItemID),
		"contextid", strconv.Itoa(opts.ContextID),
	)
	for k := range fields {
		if err := mw.WriteField(k, fields.Get(k)); err != nil {
			return nil, lmserr.Wrap(lmserr.KindRequest, "build upload form", err).WithPlatform(Platform, uploadOp)
		}
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file_1"; filename=%q`, filename))
	h.Set("Content-Type", opts.MimeType)
	part, err := mw.CreatePart(h)
	if err == nil {
		_, err = part.Write(data)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return nil, lmserr.Wrap(lmserr.KindRequest, "build upload form", err).WithPlatform(Platform, uploadOp)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, bytes.NewReader(body.Bytes()))
	if err != nil {
		return nil, lmserr.Wrap(lmserr.KindRequest, "create upload request", err).WithPlatform(Platform, uploadOp)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.upload.Do(req)
	if err != nil {
		return nil, c.wrap(err, uploadOp)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, c.wrap(err, uploadOp)
	}
	return decodeUpload(raw)
}

func decodeUpload(raw []byte) (*UploadedFile, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var failure struct {
			Error     string `json:"error"`
			ErrorCode string `json:"errorcode"`
			Exception string `json:"exception"`
			Message   string `json:"message"`
		}
		if err := json.Unmarshal(raw, &failure); err == nil {
			if failure.Exception != "" {
				return nil, normalizeException(exception{
					Exception: failure.Exception,
					ErrorCode: failure.ErrorCode,
					Message:   failure.Message,
				}).WithPlatform(Platform, uploadOp)
			}
			if failure.Error != "" {
				e := lmserr.New(lmserr.KindIntegration, "File upload failed: "+failure.Error)
				e.Code = failure.ErrorCode
				return nil, e.WithPlatform(Platform, uploadOp)
			}
		}
	}

	var files []UploadedFile
	if err := json.Unmarshal(raw, &files); err != nil {
		return nil, lmserr.Wrap(lmserr.KindIntegration, "Invalid JSON response from Moodle upload", err).WithPlatform(Platform, uploadOp)
	}
	if len(files) == 0 {
		return nil, lmserr.New(lmserr.KindIntegration, "File upload failed: empty response").WithPlatform(Platform, uploadOp)
	}
	return &files[0], nil
}

// AttachFileToCourseResource creates a file resource in a course from a
// staged draft item.
func (c *Client) AttachFileToCourseResource(ctx context.Context, courseID, draftItemID int, name, filename, intro string) (*Resource, error) {
	const fn = "mod_resource_add_resource"
	input := struct {
		CourseID    int    `json:"course" validate:"required,min=1"`
		DraftItemID int    `json:"itemid" validate:"required,min=1"`
		Name        string `json:"name" validate:"required,max=255"`
		FileName    string `json:"filename" validate:"required"`
	}{courseID, draftItemID, name, filename}
	if err := validate(input, fn); err != nil {
		return nil, err
	}

	params := map[string]any{
		"course":      courseID,
		"name":        name,
		"intro":       intro,
		"introformat": 1,
		"files": []map[string]any{{
			"filename": filename,
			"filepath": "/",
			"filearea": "content",
			"itemid":   draftItemID,
		}},
	}
	var res Resource
	if err := c.Call(ctx, fn, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AddURLToCourse adds an external URL resource to a course.
func (c *Client) AddURLToCourse(ctx context.Context, courseID int, name, externalURL, intro string) (*Resource, error) {
	const fn = "mod_url_add_url"
	input := struct {
		CourseID int    `json:"course" validate:"required,min=1"`
		Name     string `json:"name" validate:"required,max=255"`
		URL      string `json:"externalurl" validate:"required,url"`
	}{courseID, name, externalURL}
	if err := validate(input, fn); err != nil {
		return nil, err
	}

	params := map[string]any{
		"course":      courseID,
		"name":        name,
		"intro":       intro,
		"introformat": 1,
		"externalurl": externalURL,
		"display":     0,
	}
	var res Resource
	if err := c.Call(ctx, fn, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// AddPageToCourse adds an HTML page resource to a course.
func (c *Client) AddPageToCourse(ctx context.Context, courseID int, name, content, intro string) (*Resource, error) {
	const fn = "mod_page_add_page"
	input := struct {
		CourseID int    `json:"course" validate:"required,min=1"`
		Name     string `json:"name" validate:"required,max=255"`
	}{courseID, name}
	if err := validate(input, fn); err != nil {
		return nil, err
	}

	params := map[string]any{
		"course":        courseID,
		"name":          name,
		"intro":         intro,
		"introformat":   1,
		"content":       content,
		"contentformat": 1,
	}
	var res Resource
	if err := c.Call(ctx, fn, params, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
