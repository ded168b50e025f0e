// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
)

type enrolment struct {
	RoleID   int `json:"roleid" validate:"gt=0"`
	UserID   int `json:"userid" validate:"gt=0"`
	CourseID int `json:"courseid" validate:"gt=0"`
}

type enrolInput struct {
	Enrolments []enrolment `json:"enrolments" validate:"required,min=1,dive"`
}

type courseInput struct {
	FullName   string `json:"fullname" validate:"required,max=254"`
	ShortName  string `json:"shortname" validate:"required"`
	CategoryID int    `json:"categoryid" validate:"gt=0"`
	Platform   string `json:"platform" validate:"omitempty,lmsplatform"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same singleton instance")
	}
}

func TestValidateStruct_Valid(t *testing.T) {
	in := courseInput{FullName: "Biology 101", ShortName: "BIO101", CategoryID: 1, Platform: "moodle"}
	if err := ValidateStruct(&in); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateStruct_UsesJSONFieldNames(t *testing.T) {
	err := ValidateStruct(&courseInput{CategoryID: 0})
	if err == nil {
		t.Fatal("expected validation error")
	}

	fields := map[string]string{}
	for _, fe := range err.Errors() {
		fields[fe.Field()] = fe.Tag()
	}
	for _, want := range []string{"fullname", "shortname", "categoryid"} {
		if _, ok := fields[want]; !ok {
			t.Errorf("expected error for %q, got %v", want, fields)
		}
	}
	if !strings.Contains(err.Error(), "fullname is required") {
		t.Errorf("message should use json names: %s", err.Error())
	}
}

func TestValidateStruct_Dive(t *testing.T) {
	err := ValidateStruct(&enrolInput{Enrolments: []enrolment{{RoleID: 5, UserID: 0, CourseID: 2}}})
	if err == nil {
		t.Fatal("expected validation error for zero userid")
	}
	if !strings.Contains(err.Error(), "enrolments[0].userid must be greater than 0") {
		t.Errorf("unexpected message: %s", err.Error())
	}

	if ValidateStruct(&enrolInput{}) == nil {
		t.Error("empty enrolments must fail")
	}
}

func TestValidateStruct_LMSPlatform(t *testing.T) {
	err := ValidateStruct(&courseInput{FullName: "x", ShortName: "y", CategoryID: 1, Platform: "blackboard"})
	if err == nil {
		t.Fatal("expected unknown platform to fail")
	}
	if err.Errors()[0].Tag() != "lmsplatform" {
		t.Errorf("tag = %q, want lmsplatform", err.Errors()[0].Tag())
	}
}

func TestToLMSError(t *testing.T) {
	verr := ValidateStruct(&courseInput{FullName: "x", ShortName: "y", CategoryID: -1})
	if verr == nil {
		t.Fatal("expected error")
	}
	lerr := verr.ToLMSError()
	if !errors.Is(lerr, lmserr.ErrValidation) {
		t.Error("expected validation kind")
	}
	if lerr.Status != 400 {
		t.Errorf("status = %d, want 400", lerr.Status)
	}
	if lmserr.IsTransient(lerr) {
		t.Error("validation errors must not be transient")
	}
}

func TestToAPIError(t *testing.T) {
	single := ValidateStruct(&courseInput{FullName: "x", ShortName: "y"}).ToAPIError()
	if single.Code != "VALIDATION_ERROR" || single.Details["field"] != "categoryid" {
		t.Errorf("unexpected single APIError: %+v", single)
	}

	multi := ValidateStruct(&courseInput{}).ToAPIError()
	if _, ok := multi.Details["fields"]; !ok {
		t.Errorf("expected fields list, got %+v", multi.Details)
	}
}
