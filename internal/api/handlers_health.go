// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package api

import (
	"context"
	"net/http"
	"time"

	"ferm/internal/models"
)

// Health handles GET /health. It answers 503 when the database is down or
// the broker is enabled but disconnected.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := models.HealthStatus{
		Status:   "healthy",
		Database: "ok",
		Notifier: models.NotifierHealth{Enabled: h.notifierEnabled},
	}
	code := http.StatusOK

	if h.db == nil {
		status.Database = "unconfigured"
	} else if err := h.db.Ping(ctx); err != nil {
		status.Database = "unreachable"
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	if h.broker != nil {
		bs := h.broker.Status(ctx)
		status.Broker = models.BrokerHealth{
			Enabled:   bs.Enabled,
			Connected: bs.Connected,
			Embedded:  bs.Embedded,
			Breaker:   bs.Breaker,
			Stream:    bs.Stream,
		}
		if bs.Enabled && !bs.Connected {
			status.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}

	respondJSON(w, r, code, status)
}
