// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package query

import (
	"strings"
	"time"
)

// WhereBuilder constructs parameterized SQL WHERE clauses over the courses table.
//
//	wb := query.NewWhereBuilder()
//	wb.AddPlatforms([]string{"moodle", "canvas"})
//	wb.AddSearch("algebra")
//	whereClause, args := wb.Build()
//	// lms IN (?, ?) AND (LOWER(name) LIKE ? OR LOWER(short_name) LIKE ?)
type WhereBuilder struct {
	clauses []string
	args    []interface{}
}

// NewWhereBuilder creates an empty builder.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{
		clauses: []string{},
		args:    []interface{}{},
	}
}

// AddClause adds a raw condition with its arguments.
func (wb *WhereBuilder) AddClause(clause string, args ...interface{}) *WhereBuilder {
	wb.clauses = append(wb.clauses, clause)
	wb.args = append(wb.args, args...)
	return wb
}

// AddPlatforms restricts rows to the given lms values. Empty is a no-op.
func (wb *WhereBuilder) AddPlatforms(platforms []string) *WhereBuilder {
	if len(platforms) == 0 {
		return wb
	}
	placeholders := make([]string, len(platforms))
	for i, p := range platforms {
		placeholders[i] = "?"
		wb.args = append(wb.args, p)
	}
	wb.clauses = append(wb.clauses, "lms IN ("+strings.Join(placeholders, ", ")+")")
	return wb
}

// AddActive filters on the active flag. Nil is a no-op.
func (wb *WhereBuilder) AddActive(active *bool) *WhereBuilder {
	if active == nil {
		return wb
	}
	return wb.AddClause("active = ?", *active)
}

// AddUpdatedSince keeps rows updated at or after since. Rows never updated
// fall back to their creation time.
func (wb *WhereBuilder) AddUpdatedSince(since *time.Time) *WhereBuilder {
	if since == nil {
		return wb
	}
	return wb.AddClause("COALESCE(updated_at, created_at) >= ?", *since)
}

// AddSearch matches term case-insensitively against name and short name.
// LIKE wildcards in term are escaped.
func (wb *WhereBuilder) AddSearch(term string) *WhereBuilder {
	term = strings.TrimSpace(term)
	if term == "" {
		return wb
	}
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	return wb.AddClause(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(short_name) LIKE ? ESCAPE '\')`, pattern, pattern)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// Build returns the conditions joined with AND. An empty builder yields "1=1".
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.clauses) == 0 {
		return "1=1", []interface{}{}
	}
	return strings.Join(wb.clauses, " AND "), wb.args
}

// BuildWithPrefix returns the clause with a leading "WHERE ".
func (wb *WhereBuilder) BuildWithPrefix() (string, []interface{}) {
	whereClause, args := wb.Build()
	return "WHERE " + whereClause, args
}

// Count returns the number of conditions.
func (wb *WhereBuilder) Count() int {
	return len(wb.clauses)
}

// IsEmpty reports whether no condition was added.
func (wb *WhereBuilder) IsEmpty() bool {
	return len(wb.clauses) == 0
}
