// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package lms

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lmsbridge/internal/config"
	"github.com/tomtom215/lmsbridge/internal/database"
	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/models"
	"github.com/tomtom215/lmsbridge/internal/resilience"
)

// checkNoError fails the test if err is not nil
func checkNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// checkKind fails the test unless err carries kind
func checkKind(t *testing.T, err error, kind lmserr.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := lmserr.KindOf(err); got != kind {
		t.Fatalf("expected %s error, got %s (%v)", kind, got, err)
	}
}

// checkStringEqual checks that got equals want
func checkStringEqual(t *testing.T, fieldName, got, want string) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %q, got %q", fieldName, want, got)
	}
}

// checkIntEqual checks that got equals want
func checkIntEqual(t *testing.T, fieldName string, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("%s: expected %d, got %d", fieldName, want, got)
	}
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

// testHTTP returns a client that does not retry at the transport level.
func testHTTP() *resilience.RobustClient {
	opts := resilience.DefaultHTTPClientOptions()
	opts.MaxRetries = 0
	opts.Timeout = 2 * time.Second
	return resilience.NewRobustClient(opts)
}

// testOptions keeps the production shape with instant retries.
func testOptions() Options {
	opts := DefaultOptions()
	opts.Retry.Sleep = noSleep
	opts.TestTimeout = 2 * time.Second
	return opts
}

func newTestStore(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.New(&config.DatabaseConfig{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "lms.db"),
	})
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func writeJSONBody(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// fakeConnector is a scripted Connector.
type fakeConnector struct {
	platform models.Platform

	mu       sync.Mutex
	courses  []models.RemoteCourse
	fetchErr error
	fetches  int

	uploadErr error
	uploads   int
	resource  string

	testErr error
}

func (f *fakeConnector) Platform() models.Platform { return f.platform }

func (f *fakeConnector) FetchCourses(context.Context) ([]models.RemoteCourse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return append([]models.RemoteCourse(nil), f.courses...), nil
}

func (f *fakeConnector) CreateCourse(_ context.Context, in models.CourseInput) (models.RemoteCourse, error) {
	return models.RemoteCourse{ExternalID: "900", Name: in.Name, ShortName: in.ShortName, Description: in.Description, Category: "Fake"}, nil
}

func (f *fakeConnector) UpdateCourse(_ context.Context, externalID string, in models.CourseInput) (models.RemoteCourse, error) {
	return models.RemoteCourse{ExternalID: externalID, Name: in.Name, ShortName: in.ShortName, Description: in.Description}, nil
}

func (f *fakeConnector) Upload(context.Context, string, *models.Content) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads++
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.resource, nil
}

func (f *fakeConnector) TestConnection(context.Context) (string, error) {
	if f.testErr != nil {
		return "", f.testErr
	}
	return "Connected to fake", nil
}

func (f *fakeConnector) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeConnector) setCourses(courses ...models.RemoteCourse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.courses = courses
	f.fetchErr = nil
}

func (f *fakeConnector) failWith(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchErr = err
}

var errUnavailable = lmserr.New(lmserr.KindServiceUnavailable, "service unavailable (HTTP 503)")

func isKind(err error, kind lmserr.Kind) bool {
	var lerr *lmserr.Error
	return errors.As(err, &lerr) && lerr.Kind == kind
}
