// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// Plot is one row of the plots table. Timestamps are Unix milliseconds.
type Plot struct {
	UserID          int64          `db:"user_id"`
	Slot            int            `db:"slot"`
	CropType        sql.NullString `db:"crop_type"`
	PlantedAt       sql.NullInt64  `db:"planted_at"`
	Harvested       bool           `db:"harvested"`
	MaturedNotified bool           `db:"matured_notified"`
}

// PlantedTime returns PlantedAt as a time, or false when the plot is empty.
func (p *Plot) PlantedTime() (time.Time, bool) {
	if !p.PlantedAt.Valid {
		return time.Time{}, false
	}
	return time.UnixMilli(p.PlantedAt.Int64), true
}

// MaturedPlot is a scanner hit: a plot joined with its owner's address.
type MaturedPlot struct {
	UserID    int64  `db:"user_id"`
	Slot      int    `db:"slot"`
	CropType  string `db:"crop_type"`
	PlantedAt int64  `db:"planted_at"`
	Email     string `db:"email"`
}

const plotColumns = `user_id, slot, crop_type, planted_at, harvested, matured_notified`

// PlotStore reads and writes the plots table.
type PlotStore struct {
	db *DB
}

// NewPlotStore binds a PlotStore to db.
func NewPlotStore(db *DB) *PlotStore {
	return &PlotStore{db: db}
}

// EnsureSlots creates Empty plots 1..slots for userID. Existing rows are
// left untouched, so calling it on every request is safe.
func (s *PlotStore) EnsureSlots(ctx context.Context, tx *sqlx.Tx, userID int64, slots int) error {
	for slot := 1; slot <= slots; slot++ {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO plots (user_id, slot, harvested, matured_notified) VALUES (?, ?, 0, 0)`,
			userID, slot); err != nil {
			return fmt.Errorf("insert plot %d: %w", slot, err)
		}
	}
	return nil
}

// List returns every plot of userID ordered by slot.
func (s *PlotStore) List(ctx context.Context, userID int64) ([]Plot, error) {
	var plots []Plot
	err := s.db.conn.SelectContext(ctx, &plots,
		`SELECT `+plotColumns+` FROM plots WHERE user_id = ? ORDER BY slot`, userID)
	if err != nil {
		return nil, fmt.Errorf("list plots: %w", err)
	}
	return plots, nil
}

// Get reads one plot outside any transaction.
func (s *PlotStore) Get(ctx context.Context, userID int64, slot int) (*Plot, error) {
	return getPlot(ctx, s.db.conn, userID, slot)
}

// GetForUpdate reads one plot inside tx. Because tx began IMMEDIATE it
// already holds the write lock, so the row cannot change until tx ends.
func (s *PlotStore) GetForUpdate(ctx context.Context, tx *sqlx.Tx, userID int64, slot int) (*Plot, error) {
	return getPlot(ctx, tx, userID, slot)
}

func getPlot(ctx context.Context, q sqlx.QueryerContext, userID int64, slot int) (*Plot, error) {
	var p Plot
	err := sqlx.GetContext(ctx, q, &p,
		`SELECT `+plotColumns+` FROM plots WHERE user_id = ? AND slot = ?`, userID, slot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plot: %w", err)
	}
	return &p, nil
}

// Update writes every mutable column of p.
func (s *PlotStore) Update(ctx context.Context, tx *sqlx.Tx, p *Plot) error {
	res, err := tx.NamedExecContext(ctx, `
		UPDATE plots
		SET crop_type = :crop_type, planted_at = :planted_at,
		    harvested = :harvested, matured_notified = :matured_notified
		WHERE user_id = :user_id AND slot = :slot`, p)
	if err != nil {
		return fmt.Errorf("update plot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindMaturedUnnotified returns growing plots planted at or before cutoff
// whose owner has not been told yet. Owners without an address are skipped.
func (s *PlotStore) FindMaturedUnnotified(ctx context.Context, cutoff time.Time) ([]MaturedPlot, error) {
	var hits []MaturedPlot
	err := s.db.conn.SelectContext(ctx, &hits, `
		SELECT p.user_id, p.slot, p.crop_type, p.planted_at, u.email
		FROM plots p
		JOIN users u ON u.id = p.user_id
		WHERE p.harvested = 0
		  AND p.crop_type IS NOT NULL
		  AND p.planted_at IS NOT NULL
		  AND p.matured_notified = 0
		  AND p.planted_at <= ?
		  AND u.email <> ''
		ORDER BY p.planted_at, p.user_id, p.slot`, cutoff.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("find matured plots: %w", err)
	}
	return hits, nil
}

// MarkNotified flips matured_notified for the crop planted at plantedAt.
// It reports false when the plot no longer holds that crop (harvested,
// uprooted or replanted since the notification was built) or was already
// marked.
func (s *PlotStore) MarkNotified(ctx context.Context, userID int64, slot int, plantedAt int64) (bool, error) {
	var marked bool
	err := s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE plots SET matured_notified = 1
			WHERE user_id = ? AND slot = ? AND planted_at = ?
			  AND harvested = 0 AND matured_notified = 0`,
			userID, slot, plantedAt)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		marked = n > 0
		return err
	})
	if err != nil {
		return false, fmt.Errorf("mark plot notified: %w", err)
	}
	return marked, nil
}
