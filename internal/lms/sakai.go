// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

/*
sakai.go - Sakai Entity Broker Connector

Sakai authenticates with a session created by POST /direct/session. The
session id is kept in the token manager with a bounded lifetime and a
refresher that logs in again, so expired or rejected sessions are replaced
transparently. Every call passes the session as the sakai.session parameter.
*/

package lms

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/logging"
	"github.com/tomtom215/lmsbridge/internal/models"
	"github.com/tomtom215/lmsbridge/internal/resilience"
)

const (
	sakaiTokenService = "sakai"
	sakaiCategory     = "Sakai"
	sakaiMaxBody      = 1 << 20
)

// Ensure SakaiConnector implements Connector
var _ Connector = (*SakaiConnector)(nil)

// SakaiConfig configures a SakaiConnector.
type SakaiConfig struct {
	BaseURL    string
	Username   string
	Password   string
	SessionTTL time.Duration

	HTTP   *resilience.RobustClient
	Upload *resilience.RobustClient
	Tokens *resilience.TokenManager
}

// SakaiConnector talks to the Sakai /direct entity broker.
type SakaiConnector struct {
	base     string
	username string
	password string
	ttl      time.Duration
	http     *resilience.RobustClient
	upload   *resilience.RobustClient
	tokens   *resilience.TokenManager
}

type sakaiSite struct {
	ID               string `json:"id"`
	EntityID         string `json:"entityId"`
	Title            string `json:"title"`
	ShortDescription string `json:"shortDescription"`
	Description      string `json:"description"`
	Type             string `json:"type"`
}

func (s sakaiSite) remote() models.RemoteCourse {
	id := s.ID
	if id == "" {
		id = s.EntityID
	}
	short := s.ShortDescription
	if short == "" {
		short = id
	}
	return models.RemoteCourse{
		ExternalID:  id,
		Name:        s.Title,
		ShortName:   short,
		Description: s.Description,
		Category:    sakaiCategory,
	}
}

// NewSakaiConnector validates cfg, registers the session refresher with the
// token manager and returns a connector.
func NewSakaiConnector(cfg SakaiConfig) (*SakaiConnector, error) {
	if err := requireURL(models.PlatformSakai, cfg.BaseURL); err != nil {
		return nil, err
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, lmserr.New(lmserr.KindConfiguration, "SAKAI_USERNAME and SAKAI_PASSWORD must be configured").
			WithPlatform(string(models.PlatformSakai), "configure")
	}
	if cfg.HTTP == nil {
		cfg.HTTP = resilience.NewRobustClient(resilience.DefaultHTTPClientOptions())
	}
	if cfg.Upload == nil {
		cfg.Upload = cfg.HTTP
	}
	if cfg.Tokens == nil {
		cfg.Tokens = resilience.NewTokenManager(nil)
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 30 * time.Minute
	}

	s := &SakaiConnector{
		base:     normalizeBase(cfg.BaseURL),
		username: cfg.Username,
		password: cfg.Password,
		ttl:      cfg.SessionTTL,
		http:     cfg.HTTP,
		upload:   cfg.Upload,
		tokens:   cfg.Tokens,
	}
	s.tokens.RegisterRefresher(sakaiTokenService, s.login)
	return s, nil
}

// Platform implements Connector.
func (s *SakaiConnector) Platform() models.Platform { return models.PlatformSakai }

// login creates a new Sakai session. The response body is the session id.
func (s *SakaiConnector) login(ctx context.Context) (string, time.Duration, error) {
	form := url.Values{}
	form.Set("_username", s.username)
	form.Set("_password", s.password)

	// A repeated login only yields another session.
	req, err := http.NewRequestWithContext(resilience.MarkIdempotent(ctx), http.MethodPost, s.base+"/direct/session", strings.NewReader(form.Encode()))
	if err != nil {
		return "", 0, tag(err, models.PlatformSakai, "login")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := s.send(s.http, req)
	if err != nil {
		return "", 0, tag(err, models.PlatformSakai, "login")
	}
	session := strings.TrimSpace(string(body))
	if session == "" {
		return "", 0, lmserr.New(lmserr.KindAuth, "Sakai login returned no session").
			WithPlatform(string(models.PlatformSakai), "login")
	}
	logging.Debug().Str("platform", "sakai").Str("session", logging.SanitizeToken(session)).Msg("Sakai session created")
	return session, s.ttl, nil
}

// send performs req and returns the response body.
func (s *SakaiConnector) send(client *resilience.RobustClient, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, sakaiMaxBody))
	if err != nil {
		return nil, lmserr.FromTransport(err)
	}
	return body, nil
}

// withSession runs call with a valid session. A rejected session is dropped
// and call is repeated once with a fresh one.
func (s *SakaiConnector) withSession(ctx context.Context, op string, call func(session string) error) error {
	session, err := s.tokens.GetValid(ctx, sakaiTokenService)
	if err != nil {
		return tag(err, models.PlatformSakai, op)
	}
	err = call(session)
	if !sessionRejected(err) {
		return tag(err, models.PlatformSakai, op)
	}

	logging.Ctx(ctx).Info().Str("platform", "sakai").Str("operation", op).Msg("Sakai session rejected, logging in again")
	if err := s.tokens.Invalidate(ctx, sakaiTokenService); err != nil {
		return tag(err, models.PlatformSakai, op)
	}
	session, err = s.tokens.GetValid(ctx, sakaiTokenService)
	if err != nil {
		return tag(err, models.PlatformSakai, op)
	}
	return tag(call(session), models.PlatformSakai, op)
}

func sessionRejected(err error) bool {
	if err == nil {
		return false
	}
	status := lmserr.StatusOf(err)
	return lmserr.KindOf(err) == lmserr.KindTokenExpired || status == http.StatusUnauthorized || status == http.StatusForbidden
}

func (s *SakaiConnector) url(path, session string) string {
	q := url.Values{}
	q.Set("sakai.session", session)
	return s.base + path + "?" + q.Encode()
}

// FetchCourses implements Connector.
func (s *SakaiConnector) FetchCourses(ctx context.Context) ([]models.RemoteCourse, error) {
	var out []models.RemoteCourse
	err := s.withSession(ctx, "list_sites", func(session string) error {
		var resp struct {
			Sites []sakaiSite `json:"site_collection"`
		}
		if err := s.http.GetJSON(ctx, s.url("/direct/site.json", session), nil, &resp); err != nil {
			return err
		}
		out = make([]models.RemoteCourse, 0, len(resp.Sites))
		for _, site := range resp.Sites {
			out = append(out, site.remote())
		}
		return nil
	})
	return out, err
}

func sakaiSiteBody(in models.CourseInput) map[string]any {
	return map[string]any{
		"title":            in.Name,
		"shortDescription": in.ShortName,
		"description":      in.Description,
		"type":             "course",
	}
}

// CreateCourse implements Connector. The entity broker answers with the new
// site id.
func (s *SakaiConnector) CreateCourse(ctx context.Context, in models.CourseInput) (models.RemoteCourse, error) {
	var id string
	err := s.withSession(ctx, "create_site", func(session string) error {
		body, err := s.sendJSON(ctx, http.MethodPost, s.url("/direct/site/new", session), sakaiSiteBody(in))
		if err != nil {
			return err
		}
		id = strings.TrimSpace(string(body))
		return nil
	})
	if err != nil {
		return models.RemoteCourse{}, err
	}
	if id == "" {
		return models.RemoteCourse{}, lmserr.New(lmserr.KindIntegration, "Sakai returned no site id").
			WithPlatform(string(models.PlatformSakai), "create_site")
	}
	return models.RemoteCourse{
		ExternalID:  id,
		Name:        in.Name,
		ShortName:   in.ShortName,
		Description: in.Description,
		Category:    sakaiCategory,
	}, nil
}

// UpdateCourse implements Connector.
func (s *SakaiConnector) UpdateCourse(ctx context.Context, externalID string, in models.CourseInput) (models.RemoteCourse, error) {
	err := s.withSession(ctx, "update_site", func(session string) error {
		_, err := s.sendJSON(ctx, http.MethodPut, s.url("/direct/site/"+url.PathEscape(externalID), session), sakaiSiteBody(in))
		return err
	})
	if err != nil {
		return models.RemoteCourse{}, err
	}
	return models.RemoteCourse{
		ExternalID:  externalID,
		Name:        in.Name,
		ShortName:   in.ShortName,
		Description: in.Description,
		Category:    sakaiCategory,
	}, nil
}

func (s *SakaiConnector) sendJSON(ctx context.Context, method, rawURL string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, lmserr.Wrap(lmserr.KindRequest, "marshal request body", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(data))
	if err != nil {
		return nil, lmserr.Wrap(lmserr.KindRequest, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.send(s.http, req)
}

// Upload implements Connector. Files are stored in the site's resources;
// Sakai offers no url or text resource through the broker.
func (s *SakaiConnector) Upload(ctx context.Context, externalCourseID string, item *models.Content) (string, error) {
	if item.ContentType != models.ContentFile {
		return "", unsupported(models.PlatformSakai, string(item.ContentType)+" upload")
	}
	f, err := readUpload(models.PlatformSakai, item)
	if err != nil {
		return "", err
	}

	var resourceID string
	err = s.withSession(ctx, "upload_file", func(session string) error {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		if err := mw.WriteField("name", item.Title); err != nil {
			return lmserr.Wrap(lmserr.KindRequest, "build upload form", err)
		}
		part, err := mw.CreateFormFile("file", f.name)
		if err == nil {
			_, err = part.Write(f.data)
		}
		if err == nil {
			err = mw.Close()
		}
		if err != nil {
			return lmserr.Wrap(lmserr.KindRequest, "build upload form", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			s.url("/direct/content/site/"+url.PathEscape(externalCourseID), session), bytes.NewReader(body.Bytes()))
		if err != nil {
			return lmserr.Wrap(lmserr.KindRequest, "create request", err)
		}
		req.Header.Set("Content-Type", mw.FormDataContentType())
		out, err := s.send(s.upload, req)
		if err != nil {
			return err
		}
		resourceID = strings.TrimSpace(string(out))
		return nil
	})
	if err != nil {
		return "", err
	}
	if resourceID == "" {
		return "", lmserr.New(lmserr.KindIntegration, "Sakai returned no resource id").
			WithPlatform(string(models.PlatformSakai), "upload_file")
	}
	return resourceID, nil
}

// TestConnection implements Connector.
func (s *SakaiConnector) TestConnection(ctx context.Context) (string, error) {
	var user string
	err := s.withSession(ctx, "test_connection", func(session string) error {
		var current struct {
			UserEID string `json:"userEid"`
			UserID  string `json:"userId"`
		}
		if err := s.http.GetJSON(ctx, s.url("/direct/session/current.json", session), nil, &current); err != nil {
			return err
		}
		user = current.UserEID
		if user == "" {
			user = current.UserID
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if user == "" {
		user = s.username
	}
	return "Connected as " + user, nil
}
