// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

// Package maturity tells players when their crops are ready.
//
// The Scanner periodically finds matured plots that have not been
// announced yet and hands each one to the Producer. The Producer either
// queues a MaturityNotification on the broker (QueuedDelivery) or, when
// the broker is unavailable at call time, delivers it in-process
// (DirectDelivery). Both paths end in the Deliverer, which re-reads the
// plot, sends the email and only then sets the notified flag.
//
// A notification that fails to deliver leaves the flag unset, so the next
// scan emits it again. Players may therefore get the same email twice but
// never zero times while the crop is unharvested.
package maturity
