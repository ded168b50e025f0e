// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package moodle

import (
	"net/url"
	"reflect"
	"testing"
)

func TestEncodeParams(t *testing.T) {
	tests := []struct {
		name   string
		params map[string]any
		want   url.Values
	}{
		{
			name:   "nested map",
			params: map[string]any{"a": map[string]any{"b": "v"}},
			want:   url.Values{"a[b]": {"v"}},
		},
		{
			name: "list of courses",
			params: map[string]any{"courses": []any{
				map[string]any{"fullname": "Test", "shortname": "TEST", "categoryid": 1},
			}},
			want: url.Values{
				"courses[0][fullname]":   {"Test"},
				"courses[0][shortname]":  {"TEST"},
				"courses[0][categoryid]": {"1"},
			},
		},
		{
			name:   "string slice",
			params: map[string]any{"values": []string{"email", "username"}},
			want:   url.Values{"values[0]": {"email"}, "values[1]": {"username"}},
		},
		{
			name:   "booleans",
			params: map[string]any{"visible": true, "hidden": false},
			want:   url.Values{"visible": {"1"}, "hidden": {"0"}},
		},
		{
			name:   "nil becomes empty",
			params: map[string]any{"summary": nil},
			want:   url.Values{"summary": {""}},
		},
		{
			name:   "numbers",
			params: map[string]any{"i": 42, "f": 1.5, "whole": float64(7), "big": int64(1700000000)},
			want:   url.Values{"i": {"42"}, "f": {"1.5"}, "whole": {"7"}, "big": {"1700000000"}},
		},
		{
			name: "deep nesting",
			params: map[string]any{"enrolments": []map[string]any{
				{"roleid": 5, "userid": 10, "courseid": 2},
				{"roleid": 3, "userid": 11, "courseid": 2},
			}},
			want: url.Values{
				"enrolments[0][roleid]":   {"5"},
				"enrolments[0][userid]":   {"10"},
				"enrolments[0][courseid]": {"2"},
				"enrolments[1][roleid]":   {"3"},
				"enrolments[1][userid]":   {"11"},
				"enrolments[1][courseid]": {"2"},
			},
		},
		{
			name:   "empty",
			params: nil,
			want:   url.Values{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeParams(tt.params)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("EncodeParams() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEncodeArrayParam(t *testing.T) {
	got := EncodeArrayParam([]string{"email", "username"}, "values")
	want := url.Values{"values[0]": {"email"}, "values[1]": {"username"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("EncodeArrayParam() = %v, want %v", got, want)
	}

	ids := EncodeArrayParam([]int{4, 8}, "courseids")
	if ids.Get("courseids[0]") != "4" || ids.Get("courseids[1]") != "8" {
		t.Errorf("unexpected int encoding %v", ids)
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := map[string]string{
		"https://moodle.example.com":                            "https://moodle.example.com/webservice/rest/server.php",
		"https://moodle.example.com/":                           "https://moodle.example.com/webservice/rest/server.php",
		"https://moodle.example.com/lms":                        "https://moodle.example.com/lms/webservice/rest/server.php",
		"https://moodle.example.com/webservice/rest/server.php": "https://moodle.example.com/webservice/rest/server.php",
	}
	for in, want := range tests {
		if got := NormalizeBaseURL(in); got != want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", in, got, want)
		}
	}
}
