// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package moodle

import (
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
)

func TestCreateCourse_ValidatesBeforeCalling(t *testing.T) {
	f, srv := newFakeMoodle(t)
	c := newTestClient(t, srv.URL)

	tests := []struct {
		name   string
		course NewCourse
	}{
		{"missing fullname", NewCourse{ShortName: "s", CategoryID: 1}},
		{"missing shortname", NewCourse{FullName: "f", CategoryID: 1}},
		{"missing category", NewCourse{FullName: "f", ShortName: "s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CreateCourse(context.Background(), tt.course)
			if !errors.Is(err, lmserr.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
	if n := f.callCount("core_course_create_courses"); n != 0 {
		t.Errorf("invalid input must not reach Moodle, got %d calls", n)
	}
}

func TestCreateCourse(t *testing.T) {
	f, srv := newFakeMoodle(t)
	f.reply("core_course_create_courses", `[{"id":12,"shortname":"BIO101"}]`)
	c := newTestClient(t, srv.URL)

	course, err := c.CreateCourse(context.Background(), NewCourse{
		FullName:   "Biology",
		ShortName:  "BIO101",
		CategoryID: 3,
		Summary:    "Cells",
	})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	if course.ID != 12 || course.FullName != "Biology" || course.CategoryID != 3 {
		t.Errorf("unexpected course %+v", course)
	}

	form := f.form("core_course_create_courses")
	for key, want := range map[string]string{
		"courses[0][fullname]":   "Biology",
		"courses[0][shortname]":  "BIO101",
		"courses[0][categoryid]": "3",
		"courses[0][summary]":    "Cells",
	} {
		if got := form[key]; len(got) != 1 || got[0] != want {
			t.Errorf("%s: expected %q, got %v", key, want, got)
		}
	}
}

func TestUpdateCourse_RequiresID(t *testing.T) {
	_, srv := newFakeMoodle(t)
	c := newTestClient(t, srv.URL)
	err := c.UpdateCourse(context.Background(), CourseUpdate{FullName: "x"})
	if !errors.Is(err, lmserr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestEnrolUsers(t *testing.T) {
	f, srv := newFakeMoodle(t)
	f.reply("enrol_manual_enrol_users", `null`)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	if err := c.EnrolUsers(ctx, nil); err != nil {
		t.Errorf("empty enrolment list should be a no-op: %v", err)
	}

	err := c.EnrolUsers(ctx, []Enrolment{{RoleID: 5, UserID: 9}})
	if !errors.Is(err, lmserr.ErrValidation) {
		t.Errorf("expected validation error for missing courseid, got %v", err)
	}

	if err := c.EnrolUsers(ctx, []Enrolment{{RoleID: 5, UserID: 9, CourseID: 2}}); err != nil {
		t.Fatalf("EnrolUsers: %v", err)
	}
	form := f.form("enrol_manual_enrol_users")
	if got := form["enrolments[0][courseid]"]; len(got) != 1 || got[0] != "2" {
		t.Errorf("unexpected form %v", form)
	}
}

func TestGetUsersByField(t *testing.T) {
	f, srv := newFakeMoodle(t)
	f.reply("core_user_get_users_by_field", `[{"id":3,"username":"ana","email":"ana@example.com"}]`)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	users, err := c.GetUsersByField(ctx, "email", []string{"ana@example.com"})
	if err != nil {
		t.Fatalf("GetUsersByField: %v", err)
	}
	if len(users) != 1 || users[0].UserName != "ana" {
		t.Errorf("unexpected users %+v", users)
	}
	if got := f.form("core_user_get_users_by_field")["values[0]"]; len(got) != 1 || got[0] != "ana@example.com" {
		t.Errorf("values not bracket-encoded: %v", got)
	}

	if _, err := c.GetUsersByField(ctx, "password", []string{"x"}); !errors.Is(err, lmserr.ErrValidation) {
		t.Errorf("expected validation error for unsupported field, got %v", err)
	}
	empty, err := c.GetUsersByField(ctx, "email", nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty values should return nothing: %v %v", empty, err)
	}
}

func TestGetPopupNotifications_FallsBackToLegacy(t *testing.T) {
	f, srv := newFakeMoodle(t)
	// message_popup_get_popup_notifications is not registered, so the fake
	// reports it as a missing external function.
	f.reply("core_message_get_popup_notifications",
		`{"notifications":[{"id":1,"subject":"a","read":false},{"id":2,"subject":"b","read":true}],"unreadcount":1}`)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	page, err := c.GetPopupNotifications(ctx, 7, 20, 0)
	if err != nil {
		t.Fatalf("GetPopupNotifications: %v", err)
	}
	if len(page.Notifications) != 2 || page.UnreadCount != 1 {
		t.Errorf("unexpected page %+v", page)
	}
	if got := f.form("core_message_get_popup_notifications")["userid"]; len(got) != 1 || got[0] != "7" {
		t.Errorf("legacy call should use userid, got %v", got)
	}

	// The unavailable answer is remembered.
	if _, err := c.GetPopupNotifications(ctx, 7, 20, 0); err != nil {
		t.Fatal(err)
	}
	if n := f.callCount("message_popup_get_popup_notifications"); n != 1 {
		t.Errorf("primary function should be skipped after it was reported unavailable, got %d calls", n)
	}
	if n := f.callCount("core_message_get_popup_notifications"); n != 2 {
		t.Errorf("expected 2 legacy calls, got %d", n)
	}
}

func TestGetPopupNotifications_OtherErrorsDoNotFallBack(t *testing.T) {
	f, srv := newFakeMoodle(t)
	f.reply("message_popup_get_popup_notifications",
		`{"exception":"moodle_exception","errorcode":"invaliduser","message":"no such user"}`)
	c := newTestClient(t, srv.URL)

	_, err := c.GetPopupNotifications(context.Background(), 7, 20, 0)
	if !errors.Is(err, lmserr.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if n := f.callCount("core_message_get_popup_notifications"); n != 0 {
		t.Errorf("legacy function must not be called, got %d", n)
	}
}

func TestGetUnreadPopupCount(t *testing.T) {
	t.Run("primary", func(t *testing.T) {
		f, srv := newFakeMoodle(t)
		f.reply("core_message_get_unread_popup_notifications_count", `4`)
		c := newTestClient(t, srv.URL)

		n, err := c.GetUnreadPopupCount(context.Background(), 7)
		if err != nil || n != 4 {
			t.Errorf("expected 4, got %d (%v)", n, err)
		}
	})

	t.Run("fallback counts unread", func(t *testing.T) {
		f, srv := newFakeMoodle(t)
		f.reply("message_popup_get_popup_notifications",
			`{"notifications":[{"id":1,"read":false},{"id":2,"read":false},{"id":3,"read":true}],"unreadcount":2}`)
		c := newTestClient(t, srv.URL)

		n, err := c.GetUnreadPopupCount(context.Background(), 7)
		if err != nil || n != 2 {
			t.Errorf("expected 2, got %d (%v)", n, err)
		}
		if got := f.form("message_popup_get_popup_notifications")["limitnum"]; len(got) != 1 || got[0] != "100" {
			t.Errorf("fallback should read a page of 100, got %v", got)
		}
	})

	t.Run("invalid user id", func(t *testing.T) {
		_, srv := newFakeMoodle(t)
		c := newTestClient(t, srv.URL)
		if _, err := c.GetUnreadPopupCount(context.Background(), 0); !errors.Is(err, lmserr.ErrValidation) {
			t.Errorf("expected validation error, got %v", err)
		}
	})
}

func TestUploadAndAttach(t *testing.T) {
	f, srv := newFakeMoodle(t)
	f.on("upload", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if r.FormValue("token") != testToken || r.FormValue("filearea") != "draft" {
			writeJSON(w, `{"error":"bad form","errorcode":"invalidparameter"}`)
			return
		}
		file, header, err := r.FormFile("file_1")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		if string(data) != "hello" || header.Filename != "notes.txt" {
			writeJSON(w, `{"error":"bad file"}`)
			return
		}
		writeJSON(w, `[{"component":"user","filearea":"draft","filename":"notes.txt","filepath":"/","itemid":555}]`)
	})
	f.reply("mod_resource_add_resource", `{"id":77}`)

	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	staged, err := c.UploadFile(ctx, []byte("hello"), "notes.txt", UploadOptions{})
	if err != nil {
		t.Fatalf("UploadFile: %v", err)
	}
	if staged.ItemID != 555 {
		t.Fatalf("expected item 555, got %+v", staged)
	}

	res, err := c.AttachFileToCourseResource(ctx, 4, staged.ItemID, "Notes", staged.FileName, "")
	if err != nil {
		t.Fatalf("AttachFileToCourseResource: %v", err)
	}
	if res.ID != 77 {
		t.Errorf("expected resource 77, got %d", res.ID)
	}
	if got := f.form("mod_resource_add_resource")["files[0][itemid]"]; len(got) != 1 || got[0] != "555" {
		t.Errorf("draft item not attached: %v", got)
	}
}

func TestUploadFile_ErrorPayload(t *testing.T) {
	f, srv := newFakeMoodle(t)
	f.reply("upload", `{"error":"File too big","errorcode":"maxbytes"}`)
	c := newTestClient(t, srv.URL)

	_, err := c.UploadFile(context.Background(), []byte("x"), "a.bin", UploadOptions{})
	if !errors.Is(err, lmserr.ErrIntegration) {
		t.Errorf("expected integration error, got %v", err)
	}
}

func TestAddURLAndPage(t *testing.T) {
	f, srv := newFakeMoodle(t)
	f.reply("mod_url_add_url", `{"id":5}`)
	f.reply("mod_page_add_page", `{"id":6}`)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	if _, err := c.AddURLToCourse(ctx, 2, "Docs", "not a url", ""); !errors.Is(err, lmserr.ErrValidation) {
		t.Errorf("expected validation error for bad url, got %v", err)
	}

	u, err := c.AddURLToCourse(ctx, 2, "Docs", "https://go.dev/doc", "Reference")
	if err != nil || u.ID != 5 {
		t.Fatalf("AddURLToCourse: %+v %v", u, err)
	}
	if got := f.form("mod_url_add_url")["externalurl"]; len(got) != 1 || got[0] != "https://go.dev/doc" {
		t.Errorf("unexpected externalurl %v", got)
	}

	p, err := c.AddPageToCourse(ctx, 2, "Intro", "<p>Welcome</p>", "")
	if err != nil || p.ID != 6 {
		t.Fatalf("AddPageToCourse: %+v %v", p, err)
	}
}

func TestCourseReadHelpers(t *testing.T) {
	f, srv := newFakeMoodle(t)
	f.reply("core_course_get_contents", `[{"id":1,"name":"General","section":0,"modules":[{"id":9,"name":"Forum","modname":"forum"}]}]`)
	f.reply("core_course_search_courses", `{"total":1,"courses":[{"id":3,"fullname":"Go 101","shortname":"GO"}]}`)
	f.reply("core_enrol_get_users_courses", `[{"id":3,"fullname":"Go 101","shortname":"GO"}]`)
	f.reply("core_course_get_categories", `[{"id":1,"name":"Misc","parent":0,"coursecount":4}]`)
	f.reply("core_course_delete_courses", `{"warnings":[]}`)
	f.reply("core_course_delete_modules", `null`)
	c := newTestClient(t, srv.URL)
	ctx := context.Background()

	sections, err := c.GetCourseContents(ctx, 3)
	if err != nil || len(sections) != 1 || len(sections[0].Modules) != 1 {
		t.Errorf("GetCourseContents: %+v %v", sections, err)
	}
	found, err := c.SearchCourses(ctx, "go")
	if err != nil || len(found) != 1 || found[0].ShortName != "GO" {
		t.Errorf("SearchCourses: %+v %v", found, err)
	}
	enrolled, err := c.GetEnrolledCourses(ctx, 5)
	if err != nil || len(enrolled) != 1 {
		t.Errorf("GetEnrolledCourses: %+v %v", enrolled, err)
	}
	cats, err := c.GetCourseCategories(ctx)
	if err != nil || len(cats) != 1 || cats[0].CourseCount != 4 {
		t.Errorf("GetCourseCategories: %+v %v", cats, err)
	}
	if err := c.DeleteCourse(ctx, 3); err != nil {
		t.Errorf("DeleteCourse: %v", err)
	}
	if got := f.form("core_course_delete_courses")["courseids[0]"]; len(got) != 1 || got[0] != "3" {
		t.Errorf("courseids not encoded: %v", got)
	}
	if err := c.DeleteCourseModule(ctx, 9); err != nil {
		t.Errorf("DeleteCourseModule: %v", err)
	}
	if err := c.DeleteCourse(ctx, 0); !errors.Is(err, lmserr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestDeleteCourse_WarningIsNotFound(t *testing.T) {
	f, srv := newFakeMoodle(t)
	f.reply("core_course_delete_courses", `{"warnings":[{"item":"course","itemid":99,"warningcode":"unknowncourseidnumber","message":"Unknown course ID 99"}]}`)
	c := newTestClient(t, srv.URL)

	if err := c.DeleteCourse(context.Background(), 99); !errors.Is(err, lmserr.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}
