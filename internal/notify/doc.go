// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

// Package notify delivers player notifications by email.
//
// A Sender reports the outcome of each attempt in a Result instead of an
// error, so callers can tell "not delivered, try again on the next scan"
// apart from a broken configuration. Only a delivered Result may be used
// to mark a plot as notified.
//
// SMTPSender talks to a relay with optional implicit TLS or STARTTLS and
// PLAIN auth, throttled by a token bucket. DisabledSender is used when
// email is switched off.
package notify
