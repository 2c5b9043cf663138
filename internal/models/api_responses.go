// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package models

import "time"

// APIResponse is the standard envelope for every JSON response.
//
// Example success response:
//
//	{
//	  "status": "success",
//	  "data": {"accepted": true, "requestId": "4b0c..."},
//	  "metadata": {"timestamp": "2026-03-01T09:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response metadata.
type Metadata struct {
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// APIError is the error body. Code is machine readable: VALIDATION_FAILED,
// CONFLICT, SERVICE_UNAVAILABLE, UNAUTHORIZED, FORBIDDEN, NOT_FOUND or
// INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
