// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package lms

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/models"
	"github.com/tomtom215/lmsbridge/internal/resilience"
)

// fakeSakai issues numbered sessions and accepts only the newest one.
type fakeSakai struct {
	mu      sync.Mutex
	logins  int
	current string
}

func (f *fakeSakai) login(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	if r.PostForm.Get("_username") != "admin" || r.PostForm.Get("_password") != "pw" {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
		return
	}
	f.mu.Lock()
	f.logins++
	f.current = fmt.Sprintf("session-%d", f.logins)
	session := f.current
	f.mu.Unlock()
	w.WriteHeader(http.StatusCreated)
	_, _ = io.WriteString(w, session)
}

func (f *fakeSakai) authorized(w http.ResponseWriter, r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.URL.Query().Get("sakai.session") != f.current || f.current == "" {
		http.Error(w, "session expired", http.StatusForbidden)
		return false
	}
	return true
}

func (f *fakeSakai) expire() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = "rotated"
}

func (f *fakeSakai) loginCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logins
}

func newSakai(t *testing.T) (*SakaiConnector, *fakeSakai, *http.ServeMux) {
	t.Helper()
	fake := &fakeSakai{}
	mux := http.NewServeMux()
	mux.HandleFunc("/direct/session", fake.login)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s, err := NewSakaiConnector(SakaiConfig{
		BaseURL:  srv.URL,
		Username: "admin",
		Password: "pw",
		HTTP:     testHTTP(),
		Tokens:   resilience.NewTokenManager(nil),
	})
	checkNoError(t, err)
	return s, fake, mux
}

func TestNewSakaiConnector_RequiresCredentials(t *testing.T) {
	_, err := NewSakaiConnector(SakaiConfig{BaseURL: "http://sakai", Username: "admin"})
	checkKind(t, err, lmserr.KindConfiguration)
}

func TestSakai_FetchCoursesLogsInOnce(t *testing.T) {
	s, fake, mux := newSakai(t)
	mux.HandleFunc("/direct/site.json", func(w http.ResponseWriter, r *http.Request) {
		if !fake.authorized(w, r) {
			return
		}
		writeJSONBody(w, map[string]any{"site_collection": []map[string]any{
			{"id": "site-a", "title": "Art", "shortDescription": "ART", "description": "Painting"},
			{"entityId": "site-b", "title": "Botany"},
		}})
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		courses, err := s.FetchCourses(ctx)
		checkNoError(t, err)
		if len(courses) != 2 {
			t.Fatalf("expected 2 sites, got %d", len(courses))
		}
		checkStringEqual(t, "id", courses[0].ExternalID, "site-a")
		checkStringEqual(t, "short", courses[0].ShortName, "ART")
		checkStringEqual(t, "entity id", courses[1].ExternalID, "site-b")
		checkStringEqual(t, "short fallback", courses[1].ShortName, "site-b")
		checkStringEqual(t, "category", courses[1].Category, "Sakai")
	}
	checkIntEqual(t, "logins", fake.loginCount(), 1)
}

func TestSakai_RejectedSessionLogsInAgain(t *testing.T) {
	s, fake, mux := newSakai(t)
	mux.HandleFunc("/direct/session/current.json", func(w http.ResponseWriter, r *http.Request) {
		if !fake.authorized(w, r) {
			return
		}
		writeJSONBody(w, map[string]any{"userEid": "admin", "userId": "u-1"})
	})
	ctx := context.Background()

	_, err := s.TestConnection(ctx)
	checkNoError(t, err)
	fake.expire()

	msg, err := s.TestConnection(ctx)
	checkNoError(t, err)
	checkStringEqual(t, "message", msg, "Connected as admin")
	checkIntEqual(t, "logins", fake.loginCount(), 2)
}

func TestSakai_BadCredentials(t *testing.T) {
	fake := &fakeSakai{}
	mux := http.NewServeMux()
	mux.HandleFunc("/direct/session", fake.login)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	s, err := NewSakaiConnector(SakaiConfig{BaseURL: srv.URL, Username: "admin", Password: "wrong", HTTP: testHTTP()})
	checkNoError(t, err)

	_, err = s.FetchCourses(context.Background())
	checkKind(t, err, lmserr.KindTokenExpired)
}

func TestSakai_CreateAndUploadFile(t *testing.T) {
	s, fake, mux := newSakai(t)
	mux.HandleFunc("/direct/site/new", func(w http.ResponseWriter, r *http.Request) {
		if !fake.authorized(w, r) {
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, "site-new\n")
	})
	mux.HandleFunc("/direct/content/site/site-new", func(w http.ResponseWriter, r *http.Request) {
		if !fake.authorized(w, r) {
			return
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("multipart: %v", err)
		}
		checkStringEqual(t, "name", r.FormValue("name"), "Handout")
		_, _ = io.WriteString(w, "/group/site-new/handout.pdf")
	})
	ctx := context.Background()

	created, err := s.CreateCourse(ctx, models.CourseInput{Name: "Geology", ShortName: "GEO"})
	checkNoError(t, err)
	checkStringEqual(t, "site id", created.ExternalID, "site-new")

	id, err := s.Upload(ctx, "site-new", &models.Content{Title: "Handout", ContentType: models.ContentFile,
		FilePath: writeFile(t, "handout.pdf", "%PDF-1.4")})
	checkNoError(t, err)
	checkStringEqual(t, "resource", id, "/group/site-new/handout.pdf")

	_, err = s.Upload(ctx, "site-new", &models.Content{Title: "Link", ContentType: models.ContentURL})
	checkKind(t, err, lmserr.KindIntegration)
}
