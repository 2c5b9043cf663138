// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package api

import (
	"net/http"

	"ferm/internal/authz"
	"ferm/internal/garden"
	"ferm/internal/metrics"
	"ferm/internal/models"
)

// PlotsResponse is the body of GET /api/garden/plots.
type PlotsResponse struct {
	Plots         []garden.PlotSnapshot `json:"plots"`
	GrowthMinutes float64               `json:"growthMinutes"`
	CanUproot     bool                  `json:"canUproot"`
}

// ensurePlayer creates the caller's user row and plots on first contact.
func (h *Handler) ensurePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject := authz.SubjectFromContext(r.Context())
		if subject == nil {
			respondServiceError(w, r, authz.ErrUnauthenticated)
			return
		}
		if err := h.garden.EnsurePlayer(r.Context(), subject.UserID, subject.Email); err != nil {
			respondServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListPlots handles GET /api/garden/plots.
func (h *Handler) ListPlots(w http.ResponseWriter, r *http.Request) {
	subject := authz.SubjectFromContext(r.Context())
	plots, err := h.garden.ListPlots(r.Context(), subject.UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	canUproot := h.enforcer != nil && h.enforcer.Can(subject.Role, "/api/admin/garden/uproot", http.MethodPost)
	respondJSON(w, r, http.StatusOK, PlotsResponse{
		Plots:         plots,
		GrowthMinutes: h.garden.GrowthDuration().Minutes(),
		CanUproot:     canUproot,
	})
}

// Plant handles POST /api/garden/plant. The command is queued, not
// applied: 202 means the plant will be attempted.
func (h *Handler) Plant(w http.ResponseWriter, r *http.Request) {
	var req models.PlantRequest
	if err := decodeRequest(r, &req, false); err != nil {
		metrics.RecordPlantRequest("invalid")
		respondServiceError(w, r, err)
		return
	}

	subject := authz.SubjectFromContext(r.Context())
	receipt, err := h.planter.Submit(r.Context(), garden.PlantInput{
		UserID:      subject.UserID,
		Slot:        req.Slot,
		InventoryID: req.InventoryID,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusAccepted, models.PlantAccepted{
		Accepted:  receipt.Accepted,
		RequestID: receipt.RequestID,
	})
}

// Harvest handles POST /api/garden/harvest.
func (h *Handler) Harvest(w http.ResponseWriter, r *http.Request) {
	var req models.HarvestRequest
	if err := decodeRequest(r, &req, false); err != nil {
		respondServiceError(w, r, err)
		return
	}

	subject := authz.SubjectFromContext(r.Context())
	result, err := h.garden.Harvest(r.Context(), subject.UserID, req.Slot)
	metrics.RecordTransition("harvest", err)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}
