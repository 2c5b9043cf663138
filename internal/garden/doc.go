// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

// Package garden implements the plot state machine.
//
// A plot moves Empty -> Growing -> Matured -> Harvested, where Harvested is
// immediately reset to Empty and a raw vegetable lands in the inventory.
// Matured is not stored; it is derived from planted_at and the configured
// growth duration by HasMatured. Every transition runs in one database
// transaction that holds the write lock across its read-modify-write, so
// two players (or two replays of one PlantCommand) can never both win the
// same slot.
//
// Errors returned by Service are classified for callers:
//
//   - *ValidationError: the request itself is wrong (bad slot, item is not a
//     seed, item already consumed). Never retried.
//   - *ConflictError: the request is valid but the plot is in the wrong
//     state (already growing, not yet matured, empty).
//   - *TransientError: the database was busy or unreachable; safe to retry.
package garden
