// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

// Package planting decouples "plant a seed" from the plot mutation.
//
// The Producer runs on the request path. It validates the request, wraps it
// in a PlantCommand with a fresh requestId and publishes it; the caller gets
// {accepted, requestId} before anything has changed. There is no local
// fallback: with the broker disabled or down, Submit fails with
// garden.ErrServiceUnavailable.
//
// The Consumer applies commands through garden.Service.Plant, which
// re-validates the plot and the seed under the write lock. Replays and stale
// commands therefore fail validation instead of planting twice.
package planting
