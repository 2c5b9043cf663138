// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package models

// PlantRequest asks to plant a seed from the caller's inventory.
type PlantRequest struct {
	Slot        int   `json:"slot" validate:"required,gt=0"`
	InventoryID int64 `json:"inventoryId" validate:"required,gt=0"`
}

// HarvestRequest asks to harvest the caller's plot.
type HarvestRequest struct {
	Slot int `json:"slot" validate:"required,gt=0"`
}

// WashRequest asks to wash a raw vegetable.
type WashRequest struct {
	InventoryID int64 `json:"inventoryId" validate:"required,gt=0"`
}

// UprootRequest is the admin request to clear any player's plot.
type UprootRequest struct {
	UserID int64 `json:"userId" validate:"required,gt=0"`
	Slot   int   `json:"slot" validate:"required,gt=0"`
}

// SeedGrantRequest is the admin request to give a player a seed. Type is
// checked against the crop catalog by the handler.
type SeedGrantRequest struct {
	UserID int64  `json:"userId" validate:"required,gt=0"`
	Type   string `json:"type" validate:"required"`
}

// DrainRequest bounds one admin drain of the maturity topic. Zero values
// use the server defaults.
type DrainRequest struct {
	Limit     int `json:"limit" validate:"omitempty,gt=0,lte=1000"`
	TimeoutMS int `json:"timeoutMs" validate:"omitempty,gt=0,lte=60000"`
}

// PlantAccepted is the 202 body of a plant request.
type PlantAccepted struct {
	Accepted  bool   `json:"accepted"`
	RequestID string `json:"requestId"`
}

// DrainResponse reports one admin drain.
type DrainResponse struct {
	Delivered int `json:"delivered"`
	Processed int `json:"processed"`
	Rejected  int `json:"rejected"`
	Retried   int `json:"retried"`
}

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status   string         `json:"status"`
	Database string         `json:"database"`
	Broker   BrokerHealth   `json:"broker"`
	Notifier NotifierHealth `json:"notifier"`
}

// BrokerHealth reports broker availability.
type BrokerHealth struct {
	Enabled   bool   `json:"enabled"`
	Connected bool   `json:"connected"`
	Embedded  bool   `json:"embedded,omitempty"`
	Breaker   string `json:"breaker,omitempty"`
	Stream    string `json:"stream,omitempty"`
}

// NotifierHealth reports whether maturity emails are sent.
type NotifierHealth struct {
	Enabled bool `json:"enabled"`
}
