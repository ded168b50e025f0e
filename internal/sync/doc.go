// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

/*
Package sync schedules background course synchronization.

The Manager owns one goroutine. Each pass syncs every configured platform in
order through a Syncer (normally lms.Service), records the time of each
successful platform sync, logs failures and moves on to the next platform.
The pass is tagged with a fresh correlation ID so all of its log lines can
be grouped.

Loop behaviour:

  - The first pass runs as soon as Start is called
  - Between passes the loop waits for the sync interval (default 5m, minimum 60s)
  - A panic escaping a pass is recovered, counted in lms_sync_loop_panics_total
    and followed by the error backoff (default 60s) instead of the interval
  - Stop closes the stop channel and joins the loop for at most the stop timeout

Request handlers use ForceSync or ForceSyncAll to sync on their own goroutine
with the same result and error contract as the loop, and Status to read a
snapshot that never waits for a running sync.

Usage Example:

	mgr := sync.NewManager(service, cfg.Sync)
	if err := mgr.Start(ctx); err != nil {
	    return err
	}
	defer mgr.Stop()

	res, err := mgr.ForceSync(ctx, models.PlatformMoodle)

See Also:

  - internal/lms: Syncer implementation and resilience wrapping
  - internal/supervisor/services: suture service running the manager
*/
package sync
