// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package garden

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ferm/internal/config"
	"ferm/internal/database"
	"ferm/internal/logging"
	"github.com/jmoiron/sqlx"
)

// Inventory statuses written by the state machine.
const (
	StatusHarvested = "harvested"
	StatusWashed    = "washed"
)

// Item is the read model of one inventory row.
type Item struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	CropType  string    `json:"cropType"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func itemFromRow(row *database.InventoryItem) Item {
	return Item{
		ID:        row.ID,
		Kind:      row.Kind,
		CropType:  row.CropType,
		Status:    row.Status,
		CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
	}
}

// PlantInput carries the fields of a PlantCommand the state machine needs.
type PlantInput struct {
	UserID      int64
	Slot        int
	InventoryID int64
}

// HarvestResult is the emptied plot plus the vegetable it produced.
type HarvestResult struct {
	Plot PlotSnapshot `json:"plot"`
	Item Item         `json:"item"`
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now. Tests use it to step past the growth window.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service applies plot transitions against the Plot and Inventory stores.
type Service struct {
	db        *database.DB
	plots     *database.PlotStore
	inventory *database.InventoryStore
	growth    time.Duration
	slots     int
	now       func() time.Time
}

// NewService builds a Service over db using the slot count and growth
// duration from cfg.
func NewService(db *database.DB, cfg config.GardenConfig, opts ...Option) *Service {
	s := &Service{
		db:        db,
		plots:     database.NewPlotStore(db),
		inventory: database.NewInventoryStore(db),
		growth:    cfg.GrowthDuration(),
		slots:     cfg.Slots,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GrowthDuration is how long a crop takes to mature.
func (s *Service) GrowthDuration() time.Duration { return s.growth }

// Slots is the number of plots every player owns.
func (s *Service) Slots() int { return s.slots }

// Now is the service clock.
func (s *Service) Now() time.Time { return s.now() }

// Plots exposes the underlying store to the maturity pipeline.
func (s *Service) Plots() *database.PlotStore { return s.plots }

// EnsurePlayer records the player's address and creates any missing plots.
// It is idempotent and safe to call on every authenticated request.
func (s *Service) EnsurePlayer(ctx context.Context, userID int64, email string) error {
	if userID <= 0 {
		return invalid("userId", "must be a positive integer")
	}
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.db.UpsertUser(ctx, tx, userID, email); err != nil {
			return err
		}
		return s.plots.EnsureSlots(ctx, tx, userID, s.slots)
	})
	return classify("ensure player", err)
}

// ListPlots returns the player's plots as of the service clock.
func (s *Service) ListPlots(ctx context.Context, userID int64) ([]PlotSnapshot, error) {
	rows, err := s.plots.List(ctx, userID)
	if err != nil {
		return nil, classify("list plots", err)
	}
	now := s.now()
	out := make([]PlotSnapshot, len(rows))
	for i := range rows {
		out[i] = Snapshot(&rows[i], now, s.growth)
	}
	return out, nil
}

// ValidatePlant checks the shape of a plant request without touching the
// database. The producer calls it before publishing.
func (s *Service) ValidatePlant(in PlantInput) error {
	switch {
	case in.UserID <= 0:
		return invalid("userId", "must be a positive integer")
	case in.Slot <= 0:
		return invalid("slot", "must be a positive integer")
	case s.slots > 0 && in.Slot > s.slots:
		return invalid("slot", "must be at most %d", s.slots)
	case in.InventoryID <= 0:
		return invalid("inventoryId", "must be a positive integer")
	}
	return nil
}

// Plant consumes a seed and starts a crop on an empty plot. The plot and
// the seed are read and written under one transaction, so the current state
// is re-validated every time: a replayed command finds the seed gone and
// fails with a ValidationError.
func (s *Service) Plant(ctx context.Context, in PlantInput) (*PlotSnapshot, error) {
	if err := s.ValidatePlant(in); err != nil {
		return nil, err
	}

	var snap PlotSnapshot
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		plot, err := s.plots.GetForUpdate(ctx, tx, in.UserID, in.Slot)
		if errors.Is(err, database.ErrNotFound) {
			return invalid("slot", "plot %d does not exist", in.Slot)
		}
		if err != nil {
			return err
		}
		if hasActiveCrop(plot) {
			return conflict("plot %d already has a %s growing", in.Slot, plot.CropType.String)
		}

		seed, err := s.inventory.GetForUpdate(ctx, tx, in.InventoryID, in.UserID)
		if errors.Is(err, database.ErrNotFound) {
			return invalid("inventoryId", "item %d not found in inventory", in.InventoryID)
		}
		if err != nil {
			return err
		}
		if seed.Kind != database.KindSeed {
			return invalid("inventoryId", "item %d is not a seed", in.InventoryID)
		}
		if err := s.inventory.Delete(ctx, tx, seed.ID); err != nil {
			return err
		}

		now := s.now()
		plot.CropType = sql.NullString{String: seed.CropType, Valid: true}
		plot.PlantedAt = sql.NullInt64{Int64: now.UnixMilli(), Valid: true}
		plot.Harvested = false
		plot.MaturedNotified = false
		if err := s.plots.Update(ctx, tx, plot); err != nil {
			return err
		}
		snap = Snapshot(plot, now, s.growth)
		return nil
	})
	if err != nil {
		return nil, classify("plant", err)
	}

	logging.Debug().Int64("user_id", in.UserID).Int("slot", in.Slot).
		Int64("inventory_id", in.InventoryID).Str("crop", *snap.CropType).Msg("Crop planted")
	return &snap, nil
}

// Harvest collects a matured crop into a raw vegetable and empties the plot.
func (s *Service) Harvest(ctx context.Context, userID int64, slot int) (*HarvestResult, error) {
	if userID <= 0 {
		return nil, invalid("userId", "must be a positive integer")
	}
	if slot <= 0 {
		return nil, invalid("slot", "must be a positive integer")
	}

	var result HarvestResult
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		plot, err := s.plots.GetForUpdate(ctx, tx, userID, slot)
		if errors.Is(err, database.ErrNotFound) {
			return invalid("slot", "plot %d does not exist", slot)
		}
		if err != nil {
			return err
		}
		if !hasActiveCrop(plot) {
			return conflict("plot %d has nothing to harvest", slot)
		}
		now := s.now()
		planted, ok := plot.PlantedTime()
		if !ok {
			return conflict("plot %d has a crop but no planting time", slot)
		}
		if !HasMatured(planted, now, s.growth) {
			remaining := s.growth - now.Sub(planted)
			return conflict("plot %d is not ready, %s remaining", slot, remaining.Round(time.Second))
		}

		crop := plot.CropType.String
		row := &database.InventoryItem{
			UserID:    userID,
			Kind:      database.KindRawVeg,
			CropType:  crop,
			Status:    StatusHarvested,
			CreatedAt: now.UnixMilli(),
		}
		if _, err := s.inventory.Insert(ctx, tx, row); err != nil {
			return err
		}

		plot.Harvested = true
		plot.CropType = sql.NullString{}
		plot.PlantedAt = sql.NullInt64{}
		if err := s.plots.Update(ctx, tx, plot); err != nil {
			return err
		}
		result = HarvestResult{Plot: Snapshot(plot, now, s.growth), Item: itemFromRow(row)}
		return nil
	})
	if err != nil {
		return nil, classify("harvest", err)
	}
	return &result, nil
}

// Uproot discards whatever is growing on a plot without producing anything.
func (s *Service) Uproot(ctx context.Context, userID int64, slot int) (*PlotSnapshot, error) {
	if userID <= 0 {
		return nil, invalid("userId", "must be a positive integer")
	}
	if slot <= 0 {
		return nil, invalid("slot", "must be a positive integer")
	}

	var snap PlotSnapshot
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		plot, err := s.plots.GetForUpdate(ctx, tx, userID, slot)
		if errors.Is(err, database.ErrNotFound) {
			return invalid("slot", "plot %d does not exist", slot)
		}
		if err != nil {
			return err
		}
		if !hasActiveCrop(plot) {
			return conflict("plot %d is already empty", slot)
		}
		plot.CropType = sql.NullString{}
		plot.PlantedAt = sql.NullInt64{}
		plot.Harvested = false
		plot.MaturedNotified = false
		if err := s.plots.Update(ctx, tx, plot); err != nil {
			return err
		}
		snap = Snapshot(plot, s.now(), s.growth)
		return nil
	})
	if err != nil {
		return nil, classify("uproot", err)
	}
	return &snap, nil
}

// Wash turns one raw vegetable into a washed one.
func (s *Service) Wash(ctx context.Context, userID, itemID int64) (*Item, error) {
	if itemID <= 0 {
		return nil, invalid("inventoryId", "must be a positive integer")
	}

	var out Item
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		row, err := s.inventory.GetForUpdate(ctx, tx, itemID, userID)
		if errors.Is(err, database.ErrNotFound) {
			return invalid("inventoryId", "item %d not found in inventory", itemID)
		}
		if err != nil {
			return err
		}
		if row.Kind != database.KindRawVeg {
			return invalid("inventoryId", "item %d is not an unwashed vegetable", itemID)
		}
		if err := s.inventory.SetKind(ctx, tx, row.ID, database.KindWashedVeg, StatusWashed); err != nil {
			return err
		}
		row.Kind, row.Status = database.KindWashedVeg, StatusWashed
		out = itemFromRow(row)
		return nil
	})
	if err != nil {
		return nil, classify("wash", err)
	}
	return &out, nil
}

// GrantSeed puts one seed of crop into the player's inventory.
func (s *Service) GrantSeed(ctx context.Context, userID int64, crop CropType) (*Item, error) {
	if userID <= 0 {
		return nil, invalid("userId", "must be a positive integer")
	}
	if !crop.Valid() {
		return nil, invalid("type", "unknown crop type %q", crop)
	}

	var out Item
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.db.UpsertUser(ctx, tx, userID, ""); err != nil {
			return err
		}
		if err := s.plots.EnsureSlots(ctx, tx, userID, s.slots); err != nil {
			return err
		}
		row := &database.InventoryItem{
			UserID:    userID,
			Kind:      database.KindSeed,
			CropType:  string(crop),
			CreatedAt: s.now().UnixMilli(),
		}
		if _, err := s.inventory.Insert(ctx, tx, row); err != nil {
			return err
		}
		out = itemFromRow(row)
		return nil
	})
	if err != nil {
		return nil, classify("grant seed", err)
	}
	return &out, nil
}

// Inventory lists the player's items, optionally of one kind.
func (s *Service) Inventory(ctx context.Context, userID int64, kind string) ([]Item, error) {
	switch kind {
	case "", database.KindSeed, database.KindRawVeg, database.KindWashedVeg:
	default:
		return nil, invalid("kind", "must be one of: seed veg_raw veg_washed")
	}
	rows, err := s.inventory.List(ctx, userID, kind)
	if err != nil {
		return nil, classify("list inventory", err)
	}
	out := make([]Item, len(rows))
	for i := range rows {
		out[i] = itemFromRow(&rows[i])
	}
	return out, nil
}

// classify passes domain errors through untouched, marks lock contention as
// transient and wraps everything else with op.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsValidation(err) || IsConflict(err) {
		return err
	}
	if database.IsBusy(err) || errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}
