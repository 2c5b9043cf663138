// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package database

import (
	"errors"
	"io"
	"strings"
)

// ErrNotFound is returned when a plot, item or user row does not exist.
var ErrNotFound = errors.New("record not found")

// closeQuietly is for error paths where a Close error is not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close()
	}
}

// IsBusy reports whether err is SQLite lock contention that outlived the
// busy timeout. Callers treat it as transient.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "SQLITE_LOCKED")
}
