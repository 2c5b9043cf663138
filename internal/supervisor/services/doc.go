// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

// Package services adapts ferm components to suture.Service.
//
// RunnerService wraps anything with a blocking Run(ctx) error, which covers
// the planting and maturity consumers and the maturity scanner.
// HTTPServerService wraps *http.Server.
package services
