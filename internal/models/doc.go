// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

/*
Package models defines the data structures shared by the store, the LMS
connectors and the operations API.

Key Components:

  - Platform: the LMS a course belongs to (moodle, canvas, sakai, chamilo, local)
  - Course and RemoteCourse: a local course row and its remote source record
  - Content: a course content item (file, url or text) with its LMS resource id
  - SyncResult, SyncStatus and ConnectionResult: synchronizer and connector outcomes

Local course rows are keyed by CourseKey, which combines the platform and the
remote id so that repeated syncs resolve to the same row.
*/
package models
