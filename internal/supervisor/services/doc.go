// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

// Package services adapts LMSBridge components to suture.Service.
//
// SchedulerService drives a Start/Stop scheduler, OpsServerService drives an
// *http.Server with a drain timeout, and TokenGCService compacts the Badger
// token store on a ticker. Each implements fmt.Stringer so suture can name it.
package services
