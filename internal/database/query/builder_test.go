// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package query

import (
	"testing"
	"time"
)

func TestWhereBuilder_Empty(t *testing.T) {
	wb := NewWhereBuilder()

	if !wb.IsEmpty() {
		t.Error("Expected new builder to be empty")
	}
	if wb.Count() != 0 {
		t.Errorf("Expected count 0, got %d", wb.Count())
	}

	whereClause, args := wb.Build()
	if whereClause != "1=1" {
		t.Errorf("Expected '1=1' for empty builder, got %q", whereClause)
	}
	if len(args) != 0 {
		t.Errorf("Expected 0 args, got %d", len(args))
	}
}

func TestWhereBuilder_NoOpFilters(t *testing.T) {
	wb := NewWhereBuilder().
		AddPlatforms(nil).
		AddActive(nil).
		AddUpdatedSince(nil).
		AddSearch("   ")

	if !wb.IsEmpty() {
		t.Errorf("Expected empty filters to add nothing, got %d clauses", wb.Count())
	}
}

func TestWhereBuilder_AddPlatforms(t *testing.T) {
	wb := NewWhereBuilder().AddPlatforms([]string{"moodle", "canvas"})

	whereClause, args := wb.Build()
	if whereClause != "lms IN (?, ?)" {
		t.Errorf("Expected lms IN clause, got %q", whereClause)
	}
	if len(args) != 2 || args[0] != "moodle" || args[1] != "canvas" {
		t.Errorf("Unexpected args %v", args)
	}
}

func TestWhereBuilder_AddSearchEscapesWildcards(t *testing.T) {
	wb := NewWhereBuilder().AddSearch(" 100%_Math ")

	_, args := wb.Build()
	if len(args) != 2 {
		t.Fatalf("Expected 2 args, got %d", len(args))
	}
	want := `%100\%\_math%`
	if args[0] != want || args[1] != want {
		t.Errorf("Expected pattern %q, got %v", want, args)
	}
}

func TestWhereBuilder_Combined(t *testing.T) {
	active := true
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	wb := NewWhereBuilder().
		AddPlatforms([]string{"sakai"}).
		AddActive(&active).
		AddUpdatedSince(&since)

	whereClause, args := wb.BuildWithPrefix()
	expected := "WHERE lms IN (?) AND active = ? AND COALESCE(updated_at, created_at) >= ?"
	if whereClause != expected {
		t.Errorf("Expected %q, got %q", expected, whereClause)
	}
	if len(args) != 3 {
		t.Fatalf("Expected 3 args, got %d", len(args))
	}
	if args[1] != true || args[2] != since {
		t.Errorf("Unexpected args %v", args)
	}
}

func TestWhereBuilder_AddClause(t *testing.T) {
	wb := NewWhereBuilder().AddClause("category = ?", "Canvas")
	if wb.Count() != 1 {
		t.Errorf("Expected count 1, got %d", wb.Count())
	}
	whereClause, args := wb.Build()
	if whereClause != "category = ?" || args[0] != "Canvas" {
		t.Errorf("Unexpected build result %q %v", whereClause, args)
	}
}
