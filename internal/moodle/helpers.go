// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package moodle

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/logging"
	"github.com/tomtom215/lmsbridge/internal/validation"
)

// validate runs struct validation and converts failures to a typed error.
func validate(v any, op string) error {
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr.ToLMSError().WithPlatform(Platform, op)
	}
	return nil
}

// toParams converts a tagged struct into the generic parameter map.
func toParams(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// isArray reports whether a raw JSON result is a list.
func isArray(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '['
}

// GetSiteInfo returns site and token information.
func (c *Client) GetSiteInfo(ctx context.Context) (*SiteInfo, error) {
	var info SiteInfo
	if err := c.Call(ctx, "core_webservice_get_site_info", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListCourses returns every course visible to the token. A non-list result is
// treated as no courses.
func (c *Client) ListCourses(ctx context.Context) ([]Course, error) {
	const fn = "core_course_get_courses"
	raw, err := c.CallRaw(ctx, fn, nil)
	if err != nil {
		return nil, err
	}
	if !isArray(raw) {
		return []Course{}, nil
	}
	var courses []Course
	if err := json.Unmarshal(raw, &courses); err != nil {
		return nil, lmserr.Wrap(lmserr.KindIntegration, "decode course list", err).WithPlatform(Platform, fn)
	}
	return courses, nil
}

// CreateCourse creates one course and returns the created record.
func (c *Client) CreateCourse(ctx context.Context, course NewCourse) (*Course, error) {
	const fn = "core_course_create_courses"
	if err := validate(course, fn); err != nil {
		return nil, err
	}
	m, err := toParams(course)
	if err != nil {
		return nil, lmserr.Wrap(lmserr.KindRequest, "encode course", err).WithPlatform(Platform, fn)
	}

	var created []Course
	if err := c.Call(ctx, fn, map[string]any{"courses": []any{m}}, &created); err != nil {
		return nil, err
	}
	if len(created) == 0 {
		return nil, lmserr.New(lmserr.KindIntegration, "Moodle returned no created course").WithPlatform(Platform, fn)
	}

	out := created[0]
	if out.FullName == "" {
		out.FullName = course.FullName
	}
	if out.CategoryID == 0 {
		out.CategoryID = course.CategoryID
	}
	out.Summary = course.Summary
	return &out, nil
}

// UpdateCourse updates one course. Warnings returned by Moodle are logged.
func (c *Client) UpdateCourse(ctx context.Context, update CourseUpdate) error {
	const fn = "core_course_update_courses"
	if err := validate(update, fn); err != nil {
		return err
	}
	m, err := toParams(update)
	if err != nil {
		return lmserr.Wrap(lmserr.KindRequest, "encode course update", err).WithPlatform(Platform, fn)
	}

	var result struct {
		Warnings []Warning `json:"warnings"`
	}
	if err := c.Call(ctx, fn, map[string]any{"courses": []any{m}}, &result); err != nil {
		return err
	}
	for _, w := range result.Warnings {
		logging.Ctx(ctx).Warn().Int("course_id", update.ID).Str("code", w.WarningCode).Str("message", w.Message).Msg("Moodle course update warning")
	}
	return nil
}

// GetUsersByField looks users up by id, idnumber, username or email.
func (c *Client) GetUsersByField(ctx context.Context, field string, values []string) ([]User, error) {
	const fn = "core_user_get_users_by_field"
	if len(values) == 0 {
		return []User{}, nil
	}
	input := struct {
		Field  string   `json:"field" validate:"required,oneof=id idnumber username email"`
		Values []string `json:"values" validate:"dive,required"`
	}{field, values}
	if err := validate(input, fn); err != nil {
		return nil, err
	}

	raw, err := c.CallRaw(ctx, fn, map[string]any{"field": field, "values": values})
	if err != nil {
		return nil, err
	}
	if !isArray(raw) {
		return []User{}, nil
	}
	var users []User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, lmserr.Wrap(lmserr.KindIntegration, "decode users", err).WithPlatform(Platform, fn)
	}
	return users, nil
}

// EnrolUsers performs manual enrolments. An empty list is a no-op.
func (c *Client) EnrolUsers(ctx context.Context, enrolments []Enrolment) error {
	const fn = "enrol_manual_enrol_users"
	if len(enrolments) == 0 {
		return nil
	}
	input := struct {
		Enrolments []Enrolment `json:"enrolments" validate:"dive"`
	}{enrolments}
	if err := validate(input, fn); err != nil {
		return err
	}

	list := make([]any, len(enrolments))
	for i, e := range enrolments {
		m, err := toParams(e)
		if err != nil {
			return lmserr.Wrap(lmserr.KindRequest, "encode enrolment", err).WithPlatform(Platform, fn)
		}
		list[i] = m
	}
	return c.Call(ctx, fn, map[string]any{"enrolments": list}, nil)
}

// GetPopupNotifications returns a page of popup notifications for userID.
// Sites without the message_popup plugin are served by the legacy core function.
func (c *Client) GetPopupNotifications(ctx context.Context, userID, limit, offset int) (*Notifications, error) {
	input := struct {
		UserID int `json:"useridto" validate:"required,min=1"`
		Limit  int `json:"limitnum" validate:"min=0,max=1000"`
		Offset int `json:"limitfrom" validate:"min=0"`
	}{userID, limit, offset}
	if err := validate(input, "message_popup_get_popup_notifications"); err != nil {
		return nil, err
	}

	var out Notifications
	err := c.callWithFallback(ctx,
		"message_popup_get_popup_notifications",
		map[string]any{"useridto": userID, "limitfrom": offset, "limitnum": limit},
		"core_message_get_popup_notifications",
		map[string]any{"userid": userID, "limitfrom": offset, "limitnum": limit},
		&out,
	)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetUnreadPopupCount returns the number of unread popup notifications. If the
// count function is unavailable the unread entries of the latest page are counted.
func (c *Client) GetUnreadPopupCount(ctx context.Context, userID int) (int, error) {
	const fn = "core_message_get_unread_popup_notifications_count"
	input := struct {
		UserID int `json:"useridto" validate:"required,min=1"`
	}{userID}
	if err := validate(input, fn); err != nil {
		return 0, err
	}

	if !c.unavailable.Contains(fn) {
		raw, err := c.CallRaw(ctx, fn, map[string]any{"useridto": userID})
		if err == nil {
			var count int
			if json.Unmarshal(raw, &count) != nil {
				return 0, nil
			}
			return count, nil
		}
		if !IsFunctionUnavailable(err) {
			return 0, err
		}
		c.unavailable.Add(fn, struct{}{})
	}

	page, err := c.GetPopupNotifications(ctx, userID, 100, 0)
	if err != nil {
		return 0, err
	}
	unread := 0
	for _, n := range page.Notifications {
		if !n.Read {
			unread++
		}
	}
	return unread, nil
}

// DeleteCourse deletes one course.
func (c *Client) DeleteCourse(ctx context.Context, courseID int) error {
	const fn = "core_course_delete_courses"
	if err := validateID("courseid", courseID, fn); err != nil {
		return err
	}

	var result struct {
		Warnings []Warning `json:"warnings"`
	}
	if err := c.Call(ctx, fn, map[string]any{"courseids": []int{courseID}}, &result); err != nil {
		return err
	}
	if len(result.Warnings) > 0 {
		w := result.Warnings[0]
		return &lmserr.Error{
			Kind:     lmserr.KindNotFound,
			Code:     w.WarningCode,
			Status:   lmserr.DefaultStatus(lmserr.KindNotFound),
			Message:  "Resource not found: " + w.Message,
			Platform: Platform,
			Op:       fn,
		}
	}
	return nil
}

// GetCourseContents returns the sections and modules of a course.
func (c *Client) GetCourseContents(ctx context.Context, courseID int) ([]Section, error) {
	const fn = "core_course_get_contents"
	if err := validateID("courseid", courseID, fn); err != nil {
		return nil, err
	}
	var sections []Section
	if err := c.Call(ctx, fn, map[string]any{"courseid": courseID}, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

// DeleteCourseModule deletes one course module.
func (c *Client) DeleteCourseModule(ctx context.Context, cmID int) error {
	const fn = "core_course_delete_modules"
	if err := validateID("cmid", cmID, fn); err != nil {
		return err
	}
	return c.Call(ctx, fn, map[string]any{"cmids": []int{cmID}}, nil)
}

// SearchCourses performs a full text course search.
func (c *Client) SearchCourses(ctx context.Context, query string) ([]Course, error) {
	const fn = "core_course_search_courses"
	input := struct {
		Query string `json:"criteriavalue" validate:"required,min=2,max=255"`
	}{query}
	if err := validate(input, fn); err != nil {
		return nil, err
	}

	var result struct {
		Total   int      `json:"total"`
		Courses []Course `json:"courses"`
	}
	params := map[string]any{"criterianame": "search", "criteriavalue": query}
	if err := c.Call(ctx, fn, params, &result); err != nil {
		return nil, err
	}
	return result.Courses, nil
}

// GetEnrolledCourses returns the courses userID is enrolled in.
func (c *Client) GetEnrolledCourses(ctx context.Context, userID int) ([]Course, error) {
	const fn = "core_enrol_get_users_courses"
	if err := validateID("userid", userID, fn); err != nil {
		return nil, err
	}
	var courses []Course
	if err := c.Call(ctx, fn, map[string]any{"userid": userID}, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// GetCourseCategories returns all course categories.
func (c *Client) GetCourseCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := c.Call(ctx, "core_course_get_categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func validateID(field string, id int, op string) error {
	if id >= 1 {
		return nil
	}
	e := lmserr.Newf(lmserr.KindValidation, "%s must be a positive integer", field)
	e.Code = "min"
	return e.WithPlatform(Platform, op)
}
