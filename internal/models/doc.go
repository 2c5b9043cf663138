// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

// Package models defines the JSON shapes of the HTTP API: the response
// envelope shared by every endpoint and the request bodies of the garden,
// inventory and admin routes. Request types carry validator tags; the
// handlers validate them with internal/validation before use.
package models
