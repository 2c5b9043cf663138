// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package eventprocessor

import "time"

// PlantCommand asks the planting consumer to put a seed in a plot. It is
// immutable once published; RequestID correlates it with the HTTP 202.
type PlantCommand struct {
	RequestID   string    `json:"requestId" validate:"required,uuid"`
	UserID      int64     `json:"userId" validate:"required,gt=0"`
	Slot        int       `json:"slot" validate:"required,gt=0"`
	InventoryID int64     `json:"inventoryId" validate:"required,gt=0"`
	CreatedAt   time.Time `json:"createdAt" validate:"required"`
}

// Key returns the request id.
func (c *PlantCommand) Key() string { return c.RequestID }

// MaturityNotification tells the notification consumer that a plot has
// matured. PlantedAt identifies the planting, so a notification that
// outlives its crop (harvested or replanted) cannot mark the new one.
type MaturityNotification struct {
	RequestID string    `json:"requestId" validate:"required,uuid"`
	UserID    int64     `json:"userId" validate:"required,gt=0"`
	Slot      int       `json:"slot" validate:"required,gt=0"`
	CropType  string    `json:"cropType" validate:"required"`
	Email     string    `json:"email" validate:"omitempty,email"`
	PlantedAt int64     `json:"plantedAt" validate:"required,gt=0"`
	CreatedAt time.Time `json:"createdAt" validate:"required"`
}

// Key returns the request id.
func (n *MaturityNotification) Key() string { return n.RequestID }
