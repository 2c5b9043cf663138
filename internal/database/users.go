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

// User is the slice of the profile the garden needs: who owns a plot and
// where to send the maturity email. Profiles are managed elsewhere.
type User struct {
	ID        int64  `db:"id"`
	Email     string `db:"email"`
	CreatedAt int64  `db:"created_at"`
}

// UpsertUser inserts the user or refreshes their email. An empty email
// keeps the stored one.
func (db *DB) UpsertUser(ctx context.Context, tx *sqlx.Tx, id int64, email string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, email, created_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET email = excluded.email
		WHERE excluded.email <> ''`,
		id, email, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// GetUser reads one user.
func (db *DB) GetUser(ctx context.Context, id int64) (*User, error) {
	var u User
	err := db.conn.GetContext(ctx, &u, `SELECT id, email, created_at FROM users WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
