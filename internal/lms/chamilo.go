// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

/*
chamilo.go - Chamilo REST v2 Connector

Every call is a form POST to main/webservices/api/v2.php carrying the action
name, the username and the API key. Responses share the envelope
{"error": bool, "message": string, "data": ...}.
*/

package lms

import (
	"bytes"
	"context"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/models"
	"github.com/tomtom215/lmsbridge/internal/resilience"
)

const (
	chamiloEndpoint = "/main/webservices/api/v2.php"
	chamiloCategory = "Chamilo"
)

// chamiloReadActions have no side effects and may be replayed on failure.
var chamiloReadActions = map[string]bool{
	"user_courses": true,
	"user_profile": true,
}

// Ensure ChamiloConnector implements Connector
var _ Connector = (*ChamiloConnector)(nil)

// ChamiloConfig configures a ChamiloConnector.
type ChamiloConfig struct {
	BaseURL  string
	Username string
	APIKey   string
	HTTP     *resilience.RobustClient
}

// ChamiloConnector talks to the Chamilo REST v2 API.
type ChamiloConnector struct {
	endpoint string
	username string
	apiKey   string
	http     *resilience.RobustClient
}

type chamiloEnvelope struct {
	Error   bool            `json:"error"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type chamiloCourse struct {
	ID    json.Number `json:"id"`
	Title string      `json:"title"`
	Code  string      `json:"code"`
}

// NewChamiloConnector validates cfg and returns a connector.
func NewChamiloConnector(cfg ChamiloConfig) (*ChamiloConnector, error) {
	if err := requireURL(models.PlatformChamilo, cfg.BaseURL); err != nil {
		return nil, err
	}
	if cfg.APIKey == "" || cfg.Username == "" {
		return nil, lmserr.New(lmserr.KindConfiguration, "CHAMILO_USERNAME and CHAMILO_API_KEY must be configured").
			WithPlatform(string(models.PlatformChamilo), "configure")
	}
	if cfg.HTTP == nil {
		cfg.HTTP = resilience.NewRobustClient(resilience.DefaultHTTPClientOptions())
	}
	return &ChamiloConnector{
		endpoint: normalizeBase(cfg.BaseURL) + chamiloEndpoint,
		username: cfg.Username,
		apiKey:   cfg.APIKey,
		http:     cfg.HTTP,
	}, nil
}

// Platform implements Connector.
func (c *ChamiloConnector) Platform() models.Platform { return models.PlatformChamilo }

// call performs one API action and decodes the data member into out.
func (c *ChamiloConnector) call(ctx context.Context, action string, params url.Values, out any) error {
	form := url.Values{}
	for k, vs := range params {
		form[k] = vs
	}
	form.Set("action", action)
	form.Set("username", c.username)
	form.Set("api_key", c.apiKey)

	if chamiloReadActions[action] {
		ctx = resilience.MarkIdempotent(ctx)
	}

	var env chamiloEnvelope
	if err := c.http.PostForm(ctx, c.endpoint, nil, form, &env); err != nil {
		return tag(err, models.PlatformChamilo, action)
	}
	if env.Error {
		msg := env.Message
		if msg == "" {
			msg = "unknown error"
		}
		e := lmserr.New(lmserr.KindIntegration, "Chamilo error: "+msg)
		e.Code = "chamilo_error"
		return e.WithPlatform(string(models.PlatformChamilo), action)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return lmserr.Wrap(lmserr.KindIntegration, "invalid data in Chamilo response", err).
			WithPlatform(string(models.PlatformChamilo), action)
	}
	return nil
}

// FetchCourses implements Connector.
func (c *ChamiloConnector) FetchCourses(ctx context.Context) ([]models.RemoteCourse, error) {
	var courses []chamiloCourse
	if err := c.call(ctx, "user_courses", nil, &courses); err != nil {
		return nil, err
	}
	out := make([]models.RemoteCourse, 0, len(courses))
	for _, cc := range courses {
		out = append(out, models.RemoteCourse{
			ExternalID: cc.ID.String(),
			Name:       cc.Title,
			ShortName:  cc.Code,
			Category:   chamiloCategory,
		})
	}
	return out, nil
}

// CreateCourse implements Connector.
func (c *ChamiloConnector) CreateCourse(ctx context.Context, in models.CourseInput) (models.RemoteCourse, error) {
	params := url.Values{}
	params.Set("title", in.Name)
	params.Set("wanted_code", in.ShortName)
	if in.Description != "" {
		params.Set("description", in.Description)
	}

	var raw json.RawMessage
	if err := c.call(ctx, "save_course", params, &raw); err != nil {
		return models.RemoteCourse{}, err
	}
	id, err := chamiloCreatedID(raw)
	if err != nil {
		return models.RemoteCourse{}, lmserr.Wrap(lmserr.KindIntegration, "Chamilo returned no course id", err).
			WithPlatform(string(models.PlatformChamilo), "save_course")
	}
	return models.RemoteCourse{
		ExternalID:  id,
		Name:        in.Name,
		ShortName:   in.ShortName,
		Description: in.Description,
		Category:    chamiloCategory,
	}, nil
}

// chamiloCreatedID reads the id from save_course data, which is either an
// object or a one-element list.
func chamiloCreatedID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return "", err
		}
		if len(list) == 0 {
			return "", lmserr.New(lmserr.KindIntegration, "empty save_course data")
		}
		raw = list[0]
	}
	var created struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(raw, &created); err != nil {
		return "", err
	}
	if _, err := strconv.ParseInt(created.ID.String(), 10, 64); err != nil {
		return "", err
	}
	return created.ID.String(), nil
}

// UpdateCourse implements Connector. The v2 API has no course update action.
func (c *ChamiloConnector) UpdateCourse(context.Context, string, models.CourseInput) (models.RemoteCourse, error) {
	return models.RemoteCourse{}, unsupported(models.PlatformChamilo, "course update")
}

// Upload implements Connector. The v2 API has no content upload action.
func (c *ChamiloConnector) Upload(context.Context, string, *models.Content) (string, error) {
	return "", unsupported(models.PlatformChamilo, "content upload")
}

// TestConnection implements Connector.
func (c *ChamiloConnector) TestConnection(ctx context.Context) (string, error) {
	var profile struct {
		FullName string `json:"fullName"`
		Username string `json:"username"`
	}
	if err := c.call(ctx, "user_profile", nil, &profile); err != nil {
		return "", err
	}
	name := profile.FullName
	if name == "" {
		name = c.username
	}
	return "Connected as " + name, nil
}
