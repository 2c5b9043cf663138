// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package api

import (
	"net/http"

	"ferm/internal/authz"
	"ferm/internal/metrics"
	"ferm/internal/models"
)

// Inventory handles GET /api/inventory.
func (h *Handler) Inventory(w http.ResponseWriter, r *http.Request) {
	subject := authz.SubjectFromContext(r.Context())
	items, err := h.garden.Inventory(r.Context(), subject.UserID, r.URL.Query().Get("kind"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]interface{}{"items": items})
}

// Wash handles POST /api/inventory/wash.
func (h *Handler) Wash(w http.ResponseWriter, r *http.Request) {
	var req models.WashRequest
	if err := decodeRequest(r, &req, false); err != nil {
		respondServiceError(w, r, err)
		return
	}

	subject := authz.SubjectFromContext(r.Context())
	item, err := h.garden.Wash(r.Context(), subject.UserID, req.InventoryID)
	metrics.RecordTransition("wash", err)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, item)
}
