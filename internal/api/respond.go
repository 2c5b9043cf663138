// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"ferm/internal/authz"
	"ferm/internal/garden"
	"ferm/internal/logging"
	"ferm/internal/models"
	"ferm/internal/validation"
)

// Error codes.
const (
	CodeValidation       = "VALIDATION_FAILED"
	CodeConflict         = "CONFLICT"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeForbidden        = "FORBIDDEN"
	CodeNotFound         = "NOT_FOUND"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
)

// maxBodyBytes bounds request bodies; every request here is a few fields.
const maxBodyBytes = 64 << 10

// sanitizeLogValue removes control characters from strings to prevent log injection attacks.
func sanitizeLogValue(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&b, "\\x%02x", r)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// respondJSON writes data in a success envelope.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeEnvelope(w, r, status, &models.APIResponse{
		Status: "success",
		Data:   data,
	})
}

// respondError writes an error envelope. err, when set, is logged but
// never sent to the client.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]interface{}, err error) {
	if err != nil {
		ev := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			ev = logging.Ctx(r.Context()).Error()
		}
		ev.Str("code", code).Str("error", sanitizeLogValue(err.Error())).Str("path", r.URL.Path).Msg("API error")
	}
	writeEnvelope(w, r, status, &models.APIResponse{
		Status: "error",
		Error:  &models.APIError{Code: code, Message: message, Details: details},
	})
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, resp *models.APIResponse) {
	resp.Metadata = models.Metadata{
		Timestamp: time.Now().UTC(),
		RequestID: logging.RequestIDFromContext(r.Context()),
	}

	data, err := json.Marshal(resp)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondServiceError maps the garden and broker error taxonomy to HTTP.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr   *garden.ValidationError
		cerr   *garden.ConflictError
		reqErr *validation.RequestValidationError
	)
	switch {
	case errors.As(err, &reqErr):
		respondError(w, r, http.StatusBadRequest, CodeValidation, reqErr.Error(), reqErr.Details(), nil)
	case errors.As(err, &verr):
		respondError(w, r, http.StatusBadRequest, CodeValidation, verr.Error(),
			map[string]interface{}{"field": verr.Field}, nil)
	case errors.As(err, &cerr):
		respondError(w, r, http.StatusConflict, CodeConflict, cerr.Error(), nil, nil)
	case errors.Is(err, garden.ErrServiceUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, CodeUnavailable,
			"The service is temporarily unavailable, try again later", nil, err)
	case errors.Is(err, authz.ErrForbidden):
		respondError(w, r, http.StatusForbidden, CodeForbidden, "Insufficient permissions", nil, nil)
	case errors.Is(err, authz.ErrUnauthenticated):
		respondError(w, r, http.StatusUnauthorized, CodeUnauthorized, "Authentication required", nil, nil)
	case garden.IsTransient(err):
		respondError(w, r, http.StatusServiceUnavailable, CodeUnavailable,
			"The service is busy, try again later", nil, err)
	default:
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "Internal server error", nil, err)
	}
}

// denyRequest is the authz DenyFunc.
func denyRequest(w http.ResponseWriter, r *http.Request, err error) {
	respondServiceError(w, r, err)
}

// decodeRequest reads a JSON body into v and validates it. An empty body
// is accepted when allowEmpty is set and leaves v at its zero value.
func decodeRequest(r *http.Request, v interface{}, allowEmpty bool) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return garden.NewValidationError("body", "could not be read")
	}
	if len(body) > maxBodyBytes {
		return garden.NewValidationError("body", "is too large")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		if allowEmpty {
			return nil
		}
		return garden.NewValidationError("body", "is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return garden.NewValidationError("body", "is not valid JSON")
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		return verr
	}
	return nil
}
