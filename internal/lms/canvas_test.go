// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package lms

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/models"
)

const canvasToken = "canvas-token"

func newCanvas(t *testing.T, mux *http.ServeMux) (*CanvasConnector, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c, err := NewCanvasConnector(CanvasConfig{BaseURL: srv.URL + "/", Token: canvasToken, HTTP: testHTTP()})
	checkNoError(t, err)
	return c, srv
}

func requireBearer(t *testing.T, r *http.Request) {
	t.Helper()
	if got := r.Header.Get("Authorization"); got != "Bearer "+canvasToken {
		t.Errorf("%s %s: unexpected Authorization %q", r.Method, r.URL.Path, got)
	}
}

func TestNewCanvasConnector_RequiresConfig(t *testing.T) {
	_, err := NewCanvasConnector(CanvasConfig{Token: "x"})
	checkKind(t, err, lmserr.KindConfiguration)
	_, err = NewCanvasConnector(CanvasConfig{BaseURL: "http://canvas"})
	checkKind(t, err, lmserr.KindConfiguration)
}

func TestCanvas_FetchCoursesFollowsPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		srvURL := "http://" + r.Host
		q := r.URL.Query()
		if q.Get("page") == "2" {
			writeJSONBody(w, []map[string]any{{"id": 12, "name": "Second", "course_code": "S2"}})
			return
		}
		if q.Get("enrollment_type") != "teacher" || q.Get("per_page") != "100" {
			t.Errorf("unexpected query %v", q)
		}
		if states := q["state[]"]; len(states) != 2 || states[0] != "available" || states[1] != "completed" {
			t.Errorf("unexpected states %v", states)
		}
		w.Header().Set("Link", `<`+srvURL+`/api/v1/courses?page=2>; rel="next", <`+srvURL+`/api/v1/courses?page=1>; rel="first"`)
		writeJSONBody(w, []map[string]any{
			{"id": 11, "name": "First", "course_code": "F1", "public_description": "about"},
		})
	})
	c, _ := newCanvas(t, mux)

	courses, err := c.FetchCourses(context.Background())
	checkNoError(t, err)
	if len(courses) != 2 {
		t.Fatalf("expected 2 courses, got %d", len(courses))
	}
	checkStringEqual(t, "id", courses[0].ExternalID, "11")
	checkStringEqual(t, "short", courses[0].ShortName, "F1")
	checkStringEqual(t, "description", courses[0].Description, "about")
	checkStringEqual(t, "category", courses[0].Category, "Canvas")
	checkStringEqual(t, "second id", courses[1].ExternalID, "12")
}

func TestCanvas_FetchCoursesFailsPastPageLimit(t *testing.T) {
	var pages atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses", func(w http.ResponseWriter, r *http.Request) {
		pages.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		w.Header().Set("Link", `<http://`+r.Host+`/api/v1/courses?page=`+strconv.Itoa(page+1)+`>; rel="next"`)
		writeJSONBody(w, []map[string]any{{"id": 100 + page, "name": "Course", "course_code": "C"}})
	})
	c, _ := newCanvas(t, mux)
	c.maxPages = 3

	courses, err := c.FetchCourses(context.Background())
	checkKind(t, err, lmserr.KindIntegration)
	if !errors.Is(err, &lmserr.Error{Kind: lmserr.KindIntegration, Code: "pagination_limit"}) {
		t.Errorf("expected pagination_limit code, got %v", err)
	}
	if courses != nil {
		t.Errorf("expected no partial result, got %d courses", len(courses))
	}
	checkIntEqual(t, "pages fetched", int(pages.Load()), 3)
}

func TestNextLink(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"empty", "", ""},
		{"next only", `<https://c/api?page=2>; rel="next"`, "https://c/api?page=2"},
		{"next after current", `<https://c/a?page=1>; rel="current", <https://c/a?page=2>; rel="next"`, "https://c/a?page=2"},
		{"no next", `<https://c/a?page=1>; rel="first", <https://c/a?page=3>; rel="last"`, ""},
		{"malformed", `https://c/a; rel="next"`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkStringEqual(t, "next", nextLink(tt.header), tt.want)
		})
	}
}

func TestCanvas_CreateAndUpdateCourse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/accounts/1/courses", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		var body canvasCourseBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Course.Name != "History" || body.Course.CourseCode != "HIS" {
			t.Errorf("unexpected body %+v", body)
		}
		writeJSONBody(w, map[string]any{"id": 40, "name": "History", "course_code": "HIS"})
	})
	mux.HandleFunc("/api/v1/courses/40", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		writeJSONBody(w, map[string]any{"id": 40, "name": "History 2", "course_code": "HIS2"})
	})
	c, _ := newCanvas(t, mux)
	ctx := context.Background()

	created, err := c.CreateCourse(ctx, models.CourseInput{Name: "History", ShortName: "HIS"})
	checkNoError(t, err)
	checkStringEqual(t, "created id", created.ExternalID, "40")

	updated, err := c.UpdateCourse(ctx, "40", models.CourseInput{Name: "History 2", ShortName: "HIS2"})
	checkNoError(t, err)
	checkStringEqual(t, "updated name", updated.Name, "History 2")
}

func TestCanvas_UploadFileThreeSteps(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/40/files", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		srvURL := "http://" + r.Host
		_ = r.ParseForm()
		checkStringEqual(t, "slot name", r.PostForm.Get("name"), "syllabus.txt")
		checkStringEqual(t, "slot size", r.PostForm.Get("size"), "5")
		writeJSONBody(w, map[string]any{
			"upload_url":    srvURL + "/upload-target",
			"upload_params": map[string]any{"key": "abc"},
		})
	})
	mux.HandleFunc("/upload-target", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("multipart: %v", err)
		}
		checkStringEqual(t, "upload param", r.FormValue("key"), "abc")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("file part: %v", err)
		}
		data, _ := io.ReadAll(f)
		checkStringEqual(t, "file name", hdr.Filename, "syllabus.txt")
		checkStringEqual(t, "file data", string(data), "hello")
		w.Header().Set("Location", "http://"+r.Host+"/api/v1/files/501/confirm")
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/api/v1/files/501/confirm", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		writeJSONBody(w, map[string]any{"id": 501})
	})
	c, _ := newCanvas(t, mux)

	item := &models.Content{Title: "Syllabus", ContentType: models.ContentFile, FilePath: writeFile(t, "syllabus.txt", "hello")}
	id, err := c.Upload(context.Background(), "40", item)
	checkNoError(t, err)
	checkStringEqual(t, "resource id", id, "501")
}

func TestCanvas_UploadURLAndText(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/courses/40/external_tools", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["url"] != "https://example.org" {
			t.Errorf("unexpected tool body %v", body)
		}
		writeJSONBody(w, map[string]any{"id": 7})
	})
	mux.HandleFunc("/api/v1/courses/40/pages", func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(raw), `"wiki_page"`) {
			t.Errorf("expected wiki_page body, got %s", raw)
		}
		writeJSONBody(w, map[string]any{"page_id": 8, "url": "notes"})
	})
	c, _ := newCanvas(t, mux)
	ctx := context.Background()

	id, err := c.Upload(ctx, "40", &models.Content{Title: "Site", ContentType: models.ContentURL,
		Data: models.ContentData{URL: "https://example.org"}})
	checkNoError(t, err)
	checkStringEqual(t, "tool id", id, "7")

	id, err = c.Upload(ctx, "40", &models.Content{Title: "Notes", ContentType: models.ContentText,
		Data: models.ContentData{Text: "<p>x</p>"}})
	checkNoError(t, err)
	checkStringEqual(t, "page id", id, "8")

	_, err = c.Upload(ctx, "40", &models.Content{Title: "Clip", ContentType: "video"})
	checkKind(t, err, lmserr.KindValidation)
}

func TestCanvas_ErrorsAreTyped(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/self", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":[{"message":"Invalid access token."}]}`, http.StatusUnauthorized)
	})
	c, _ := newCanvas(t, mux)

	_, err := c.TestConnection(context.Background())
	checkKind(t, err, lmserr.KindTokenExpired)
	if strings.Contains(err.Error(), canvasToken) {
		t.Errorf("token leaked into error: %v", err)
	}
	checkIntEqual(t, "status", lmserr.StatusOf(err), http.StatusUnauthorized)
}

func TestCanvas_TestConnection(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/users/self", func(w http.ResponseWriter, r *http.Request) {
		requireBearer(t, r)
		writeJSONBody(w, map[string]any{"id": 1, "name": "Ada Teacher"})
	})
	c, _ := newCanvas(t, mux)
	msg, err := c.TestConnection(context.Background())
	checkNoError(t, err)
	checkStringEqual(t, "message", msg, "Connected as Ada Teacher")
}
