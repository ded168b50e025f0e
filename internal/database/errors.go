// LMSBridge - Course Content Integration Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/lmsbridge

package database

import (
	"database/sql"
	"errors"
	"io"

	"github.com/tomtom215/lmsbridge/internal/lmserr"
	"github.com/tomtom215/lmsbridge/internal/logging"
)

// rollbackWithLog rolls tx back and logs a failed rollback alongside the
// error that caused it.
func rollbackWithLog(tx *sql.Tx, cause error) {
	if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
		logging.Error().
			Err(rbErr).
			AnErr("original_error", cause).
			Msg("Transaction rollback failed")
	}
}

// closeQuietly closes a resource and explicitly ignores any error
// Use this for cleanup operations in error paths where Close() errors are not actionable
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

func notFound(what, id string) error {
	return lmserr.Newf(lmserr.KindNotFound, "%s %s not found", what, id)
}
