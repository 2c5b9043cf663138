// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package api

import (
	"context"
	"time"

	"ferm/internal/authz"
	"ferm/internal/eventprocessor"
	"ferm/internal/garden"
	"ferm/internal/planting"
)

// Garden is the synchronous side of the plot state machine.
type Garden interface {
	EnsurePlayer(ctx context.Context, userID int64, email string) error
	ListPlots(ctx context.Context, userID int64) ([]garden.PlotSnapshot, error)
	Harvest(ctx context.Context, userID int64, slot int) (*garden.HarvestResult, error)
	Uproot(ctx context.Context, userID int64, slot int) (*garden.PlotSnapshot, error)
	Wash(ctx context.Context, userID, itemID int64) (*garden.Item, error)
	GrantSeed(ctx context.Context, userID int64, crop garden.CropType) (*garden.Item, error)
	Inventory(ctx context.Context, userID int64, kind string) ([]garden.Item, error)
	GrowthDuration() time.Duration
}

// PlantSubmitter queues plant commands.
type PlantSubmitter interface {
	Submit(ctx context.Context, in garden.PlantInput) (*planting.Receipt, error)
}

// NotificationDrainer processes a bounded batch of maturity notifications.
type NotificationDrainer interface {
	Drain(ctx context.Context, limit int, timeout time.Duration) (eventprocessor.DrainResult, error)
}

// Pinger checks the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerStatus reports the broker state.
type BrokerStatus interface {
	Status(ctx context.Context) eventprocessor.Status
}

// Handler holds the dependencies of every route.
type Handler struct {
	garden   Garden
	planter  PlantSubmitter
	drainer  NotificationDrainer
	db       Pinger
	broker   BrokerStatus
	enforcer *authz.Enforcer

	notifierEnabled bool
	drainLimit      int
	drainTimeout    time.Duration
}

// HandlerDeps lists the Handler dependencies. Drainer and Broker may be
// nil when the broker is disabled.
type HandlerDeps struct {
	Garden          Garden
	Planter         PlantSubmitter
	Drainer         NotificationDrainer
	DB              Pinger
	Broker          BrokerStatus
	Enforcer        *authz.Enforcer
	NotifierEnabled bool
	DrainLimit      int
	DrainTimeout    time.Duration
}

// NewHandler builds a Handler.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		garden:          deps.Garden,
		planter:         deps.Planter,
		drainer:         deps.Drainer,
		db:              deps.DB,
		broker:          deps.Broker,
		enforcer:        deps.Enforcer,
		notifierEnabled: deps.NotifierEnabled,
		drainLimit:      deps.DrainLimit,
		drainTimeout:    deps.DrainTimeout,
	}
}
