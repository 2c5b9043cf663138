// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package api

import (
	"fmt"
	"net/http"
	"time"

	"ferm/internal/garden"
	"ferm/internal/logging"
	"ferm/internal/metrics"
	"ferm/internal/models"
)

// Uproot handles POST /api/admin/garden/uproot.
func (h *Handler) Uproot(w http.ResponseWriter, r *http.Request) {
	var req models.UprootRequest
	if err := decodeRequest(r, &req, false); err != nil {
		respondServiceError(w, r, err)
		return
	}

	snap, err := h.garden.Uproot(r.Context(), req.UserID, req.Slot)
	metrics.RecordTransition("uproot", err)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Int64("user_id", req.UserID).Int("slot", req.Slot).Msg("Plot uprooted by admin")
	respondJSON(w, r, http.StatusOK, snap)
}

// GrantSeed handles POST /api/admin/inventory/seeds.
func (h *Handler) GrantSeed(w http.ResponseWriter, r *http.Request) {
	var req models.SeedGrantRequest
	if err := decodeRequest(r, &req, false); err != nil {
		respondServiceError(w, r, err)
		return
	}

	crop, err := garden.ParseCropType(req.Type)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	item, err := h.garden.GrantSeed(r.Context(), req.UserID, crop)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, item)
}

// DrainNotifications handles POST /api/admin/maturity/drain. The drain
// shares a subscription with the maturity consumer loop, so it only sees
// messages the loop has not taken; with MATURITY_CONSUMER_LOOP=false it is
// the sole delivery path.
func (h *Handler) DrainNotifications(w http.ResponseWriter, r *http.Request) {
	var req models.DrainRequest
	if err := decodeRequest(r, &req, true); err != nil {
		respondServiceError(w, r, err)
		return
	}
	if h.drainer == nil {
		respondServiceError(w, r, fmt.Errorf("%w: message broker disabled", garden.ErrServiceUnavailable))
		return
	}

	limit := h.drainLimit
	if req.Limit > 0 {
		limit = req.Limit
	}
	timeout := h.drainTimeout
	if req.TimeoutMS > 0 {
		timeout = time.Duration(req.TimeoutMS) * time.Millisecond
	}

	res, err := h.drainer.Drain(r.Context(), limit, timeout)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, models.DrainResponse{
		Delivered: res.Applied,
		Processed: res.Processed,
		Rejected:  res.Rejected,
		Retried:   res.Retried,
	})
}
