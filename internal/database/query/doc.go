// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

// Package query builds parameterized WHERE clauses for course lookups.
//
// Every value is bound through a placeholder; callers never format user input
// into SQL. Filters with no value (nil pointer, empty slice, blank string) add
// nothing, so a builder can be fed straight from an optional filter struct:
//
//	wb := query.NewWhereBuilder().
//	    AddPlatforms(platforms).
//	    AddActive(filter.Active).
//	    AddSearch(filter.Search)
//	where, args := wb.BuildWithPrefix()
//	rows, err := conn.QueryContext(ctx, "SELECT ... FROM courses "+where, args...)
package query
