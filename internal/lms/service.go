// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package lms

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/logging"
	"github.com/tomtom215/lmsbridge/internal/metrics"
	"github.com/tomtom215/lmsbridge/internal/models"
	"github.com/tomtom215/lmsbridge/internal/resilience"
	"github.com/tomtom215/lmsbridge/internal/validation"
)

// Options tunes the resilience wrapping of the integration service.
type Options struct {
	// Retry wraps every platform sync.
	Retry resilience.RetryPolicy

	// Breaker guards every platform sync and remote write.
	Breaker resilience.BreakerSettings

	// TestTimeout bounds a single connection test.
	TestTimeout time.Duration
}

// DefaultOptions returns 3 attempts with 2s exponential backoff inside a
// circuit of 5 failures and 300s recovery.
func DefaultOptions() Options {
	return Options{
		Retry: resilience.RetryPolicy{
			MaxAttempts:   3,
			BackoffFactor: 2 * time.Second,
			MaxDelay:      300 * time.Second,
			Exponential:   true,
			Retryable:     lmserr.IsTransient,
		},
		Breaker: resilience.BreakerSettings{
			FailureThreshold: 5,
			RecoveryTimeout:  300 * time.Second,
			Trips:            lmserr.IsTransientOrIntegration,
		},
		TestTimeout: 10 * time.Second,
	}
}

// platformState is the per-platform wiring fixed at construction.
type platformState struct {
	conn     Connector
	sync     *resilience.Guard
	writeKey string
	mu       sync.Mutex // serializes syncs of one platform
}

// Service mirrors remote LMS courses into the local store and pushes local
// changes back out. It is safe for concurrent use.
type Service struct {
	store     Store
	breakers  *resilience.CircuitRegistry
	opts      Options
	platforms map[models.Platform]*platformState
}

// SyncKey is the circuit key guarding syncs of platform p.
func SyncKey(p models.Platform) string {
	return fmt.Sprintf("sync_%s_courses", p)
}

// WriteKey is the circuit key guarding remote writes to platform p.
func WriteKey(p models.Platform) string {
	return fmt.Sprintf("%s_write", p)
}

// NewService wires one connector per platform. A later connector for the
// same platform replaces an earlier one.
func NewService(store Store, breakers *resilience.CircuitRegistry, opts Options, connectors ...Connector) *Service {
	s := &Service{
		store:     store,
		breakers:  breakers,
		opts:      opts,
		platforms: make(map[models.Platform]*platformState, len(connectors)),
	}
	// Writes are not retried and an unsupported operation must not open the
	// circuit, so only transient failures count against it.
	writes := opts.Breaker
	writes.Trips = lmserr.IsTransient

	for _, c := range connectors {
		if c == nil {
			continue
		}
		p := c.Platform()
		breakers.Register(SyncKey(p), opts.Breaker)
		breakers.Register(WriteKey(p), writes)
		s.platforms[p] = &platformState{
			conn:     c,
			sync:     resilience.NewGuard(breakers, SyncKey(p), opts.Retry),
			writeKey: WriteKey(p),
		}
	}
	return s
}

// Platforms returns the configured platforms in sync order.
func (s *Service) Platforms() []models.Platform {
	out := make([]models.Platform, 0, len(s.platforms))
	for _, p := range models.RemotePlatforms {
		if _, ok := s.platforms[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Breakers returns the circuit registry the service reports into.
func (s *Service) Breakers() *resilience.CircuitRegistry { return s.breakers }

func (s *Service) platform(p models.Platform) (*platformState, error) {
	st, ok := s.platforms[p]
	if !ok {
		e := lmserr.Newf(lmserr.KindConfiguration, "%s is not configured", p)
		e.Code = "not_configured"
		return nil, e.WithPlatform(string(p), "lookup")
	}
	return st, nil
}

// Sync fetches the full course list of platform p and upserts it into the
// store in one transaction. Errors are returned unchanged after the retry and
// circuit wrapping.
func (s *Service) Sync(ctx context.Context, p models.Platform) (models.SyncResult, error) {
	st, err := s.platform(p)
	if err != nil {
		return models.SyncResult{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	start := time.Now()
	result, err := resilience.GuardCall(ctx, st.sync, func(ctx context.Context) (models.SyncResult, error) {
		return s.syncOnce(ctx, st.conn)
	})
	metrics.RecordSyncOperation(string(p), time.Since(start), result.Synced, result.Updated, err)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("platform", string(p)).Msg("Course sync failed")
		return models.SyncResult{}, err
	}

	logging.Ctx(ctx).Info().
		Str("platform", string(p)).
		Int("synced", result.Synced).
		Int("updated", result.Updated).
		Int("total", result.TotalProcessed).
		Dur("duration", time.Since(start)).
		Msg("Course sync completed")
	return result, nil
}

func (s *Service) syncOnce(ctx context.Context, conn Connector) (models.SyncResult, error) {
	p := conn.Platform()
	remote, err := conn.FetchCourses(ctx)
	if err != nil {
		return models.SyncResult{}, err
	}

	courses := make([]models.Course, 0, len(remote))
	for i := range remote {
		if remote[i].ExternalID == "" {
			return models.SyncResult{}, lmserr.Newf(lmserr.KindIntegration,
				"course %q has no external id", remote[i].Name).WithPlatform(string(p), "sync")
		}
		courses = append(courses, remote[i].ToCourse(p))
	}
	return s.store.SyncCourses(ctx, p, courses)
}

// CreateCourse creates the course on platform p and mirrors it locally.
func (s *Service) CreateCourse(ctx context.Context, p models.Platform, in models.CourseInput) (*models.Course, error) {
	if verr := validation.ValidateStruct(in); verr != nil {
		return nil, verr.ToLMSError()
	}
	st, err := s.platform(p)
	if err != nil {
		return nil, err
	}

	rc, err := resilience.ExecuteValue(s.breakers, st.writeKey, func() (models.RemoteCourse, error) {
		return st.conn.CreateCourse(ctx, in)
	})
	if err != nil {
		return nil, err
	}
	if rc.ExternalID == "" {
		return nil, lmserr.New(lmserr.KindIntegration, "LMS returned no course id").
			WithPlatform(string(p), "create_course")
	}

	course := rc.ToCourse(p)
	if _, err := s.store.UpsertCourse(ctx, &course); err != nil {
		return nil, fmt.Errorf("failed to store created course: %w", err)
	}
	logging.Ctx(ctx).Info().Str("platform", string(p)).Str("course_id", course.CourseID).Msg("Course created")
	return s.store.GetCourse(ctx, course.CourseID)
}

// UpdateCourse pushes in to the LMS that owns the local course courseID and
// updates the local row.
func (s *Service) UpdateCourse(ctx context.Context, courseID string, in models.CourseInput) (*models.Course, error) {
	if verr := validation.ValidateStruct(in); verr != nil {
		return nil, verr.ToLMSError()
	}
	existing, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if existing.ExternalID == "" {
		e := lmserr.Newf(lmserr.KindValidation, "course %s is not linked to an LMS", courseID)
		e.Code = "not_linked"
		return nil, e
	}
	st, err := s.platform(existing.LMS)
	if err != nil {
		return nil, err
	}

	rc, err := resilience.ExecuteValue(s.breakers, st.writeKey, func() (models.RemoteCourse, error) {
		return st.conn.UpdateCourse(ctx, existing.ExternalID, in)
	})
	if err != nil {
		return nil, err
	}
	rc.ExternalID = existing.ExternalID
	if rc.Category == "" {
		rc.Category = existing.Category
	}

	course := rc.ToCourse(existing.LMS)
	course.Active = existing.Active
	if _, err := s.store.UpsertCourse(ctx, &course); err != nil {
		return nil, fmt.Errorf("failed to store updated course: %w", err)
	}
	return s.store.GetCourse(ctx, courseID)
}

// AddContent stores item locally and then tries to publish it to the LMS
// of its course. A failed upload is logged; the local row stays committed
// and item.LMSResourceID stays empty.
func (s *Service) AddContent(ctx context.Context, item *models.Content) error {
	if verr := validation.ValidateStruct(item); verr != nil {
		return verr.ToLMSError()
	}
	item.Active = true
	if err := s.store.CreateContent(ctx, item); err != nil {
		return err
	}

	course, err := s.store.GetCourse(ctx, item.CourseID)
	if err != nil {
		return err
	}
	if course.ExternalID == "" {
		return nil
	}
	if _, ok := s.platforms[course.LMS]; !ok {
		return nil
	}

	if _, err := s.upload(ctx, course, item); err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("platform", string(course.LMS)).
			Str("content_id", item.ID).
			Msg("Content stored locally but LMS upload failed")
	}
	return nil
}

// Upload publishes an already stored content item to the LMS of courseID
// and records the resource id. Unlike AddContent, failures are returned.
func (s *Service) Upload(ctx context.Context, courseID string, item *models.Content) (string, error) {
	course, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return "", err
	}
	if course.ExternalID == "" {
		e := lmserr.Newf(lmserr.KindValidation, "course %s is not linked to an LMS", courseID)
		e.Code = "not_linked"
		return "", e
	}
	return s.upload(ctx, course, item)
}

func (s *Service) upload(ctx context.Context, course *models.Course, item *models.Content) (string, error) {
	st, err := s.platform(course.LMS)
	if err != nil {
		return "", err
	}
	if !item.ContentType.Valid() {
		return "", lmserr.Newf(lmserr.KindValidation, "unsupported content type %q", item.ContentType)
	}

	resourceID, err := resilience.ExecuteValue(s.breakers, st.writeKey, func() (string, error) {
		return st.conn.Upload(ctx, course.ExternalID, item)
	})
	if err != nil {
		return "", err
	}
	if item.ID != "" {
		if err := s.store.SetContentResourceID(ctx, item.ID, resourceID); err != nil {
			return "", err
		}
	}
	item.LMSResourceID = resourceID
	logging.Ctx(ctx).Info().
		Str("platform", string(course.LMS)).
		Str("content_id", item.ID).
		Str("resource_id", resourceID).
		Msg("Content uploaded to LMS")
	return resourceID, nil
}

// TestConnection checks credentials and reachability of platform p.
func (s *Service) TestConnection(ctx context.Context, p models.Platform) models.ConnectionResult {
	st, err := s.platform(p)
	if err != nil {
		return models.ConnectionResult{Platform: p, Message: err.Error()}
	}
	if s.opts.TestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.TestTimeout)
		defer cancel()
	}

	msg, err := st.conn.TestConnection(ctx)
	if err != nil {
		return models.ConnectionResult{Platform: p, Message: "Connection failed: " + err.Error()}
	}
	return models.ConnectionResult{Platform: p, OK: true, Message: msg}
}

// TestAll runs TestConnection for every configured platform concurrently.
func (s *Service) TestAll(ctx context.Context) []models.ConnectionResult {
	platforms := s.Platforms()
	results := make([]models.ConnectionResult, len(platforms))

	var wg sync.WaitGroup
	for i, p := range platforms {
		wg.Add(1)
		go func(i int, p models.Platform) {
			defer wg.Done()
			results[i] = s.TestConnection(ctx, p)
		}(i, p)
	}
	wg.Wait()
	return results
}
