// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

// Package api is the HTTP surface of the garden.
//
// Routes:
//
//	GET  /health                     database and broker status
//	GET  /metrics                    Prometheus
//	GET  /api/garden/plots           the caller's plots
//	POST /api/garden/plant           queue a plant command (202)
//	POST /api/garden/harvest         harvest a matured plot
//	GET  /api/inventory?kind=        the caller's items
//	POST /api/inventory/wash         wash a raw vegetable
//	POST /api/admin/garden/uproot    clear any plot (admin)
//	POST /api/admin/inventory/seeds  grant a seed (admin)
//	POST /api/admin/maturity/drain   deliver queued notifications (admin)
//
// Every /api route requires a bearer token and passes the role policy.
// Responses use the models.APIResponse envelope.
package api
