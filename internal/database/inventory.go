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

	"github.com/jmoiron/sqlx"
)

// Inventory kinds as stored in the kind column.
const (
	KindSeed      = "seed"
	KindRawVeg    = "veg_raw"
	KindWashedVeg = "veg_washed"
)

// InventoryItem is one row of the inventory table.
type InventoryItem struct {
	ID        int64  `db:"id"`
	UserID    int64  `db:"user_id"`
	Kind      string `db:"kind"`
	CropType  string `db:"crop_type"`
	Status    string `db:"status"`
	CreatedAt int64  `db:"created_at"`
}

const inventoryColumns = `id, user_id, kind, crop_type, status, created_at`

// InventoryStore reads and writes the inventory table.
type InventoryStore struct {
	db *DB
}

// NewInventoryStore binds an InventoryStore to db.
func NewInventoryStore(db *DB) *InventoryStore {
	return &InventoryStore{db: db}
}

// Insert adds item and returns its new id.
func (s *InventoryStore) Insert(ctx context.Context, tx *sqlx.Tx, item *InventoryItem) (int64, error) {
	res, err := tx.NamedExecContext(ctx, `
		INSERT INTO inventory (user_id, kind, crop_type, status, created_at)
		VALUES (:user_id, :kind, :crop_type, :status, :created_at)`, item)
	if err != nil {
		return 0, fmt.Errorf("insert inventory item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read inventory id: %w", err)
	}
	item.ID = id
	return id, nil
}

// GetForUpdate reads item id owned by userID inside tx. Items owned by
// someone else are reported as ErrNotFound.
func (s *InventoryStore) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id, userID int64) (*InventoryItem, error) {
	var item InventoryItem
	err := tx.GetContext(ctx, &item,
		`SELECT `+inventoryColumns+` FROM inventory WHERE id = ? AND user_id = ?`, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get inventory item: %w", err)
	}
	return &item, nil
}

// Get reads one item outside any transaction.
func (s *InventoryStore) Get(ctx context.Context, id int64) (*InventoryItem, error) {
	var item InventoryItem
	err := s.db.conn.GetContext(ctx, &item,
		`SELECT `+inventoryColumns+` FROM inventory WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get inventory item: %w", err)
	}
	return &item, nil
}

// Delete removes item id.
func (s *InventoryStore) Delete(ctx context.Context, tx *sqlx.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM inventory WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete inventory item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetKind moves item id to kind with status.
func (s *InventoryStore) SetKind(ctx context.Context, tx *sqlx.Tx, id int64, kind, status string) error {
	res, err := tx.ExecContext(ctx, `UPDATE inventory SET kind = ?, status = ? WHERE id = ?`, kind, status, id)
	if err != nil {
		return fmt.Errorf("update inventory item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the items of userID, optionally filtered by kind, newest first.
func (s *InventoryStore) List(ctx context.Context, userID int64, kind string) ([]InventoryItem, error) {
	query := `SELECT ` + inventoryColumns + ` FROM inventory WHERE user_id = ?`
	args := []interface{}{userID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY id DESC`

	var items []InventoryItem
	if err := s.db.conn.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return items, nil
}

// CountByKind returns how many items of kind and cropType userID holds.
func (s *InventoryStore) CountByKind(ctx context.Context, userID int64, kind, cropType string) (int, error) {
	var n int
	err := s.db.conn.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM inventory WHERE user_id = ? AND kind = ? AND crop_type = ?`,
		userID, kind, cropType)
	if err != nil {
		return 0, fmt.Errorf("count inventory: %w", err)
	}
	return n, nil
}
