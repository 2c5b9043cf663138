// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package database

import (
	"context"
	"fmt"
	"time"

	"ferm/internal/logging"
	"github.com/jmoiron/sqlx"
)

// Migration is one append-only schema step.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at INTEGER NOT NULL
);`

// migrations must never be edited once released; add new versions instead.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_users",
		SQL: `
CREATE TABLE users (
	id         INTEGER PRIMARY KEY,
	email      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);`,
	},
	{
		Version: 2,
		Name:    "create_plots",
		SQL: `
CREATE TABLE plots (
	user_id          INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	slot             INTEGER NOT NULL CHECK (slot > 0),
	crop_type        TEXT,
	planted_at       INTEGER,
	harvested        INTEGER NOT NULL DEFAULT 0,
	matured_notified INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, slot)
);
CREATE INDEX idx_plots_maturity ON plots(harvested, matured_notified, planted_at);`,
	},
	{
		Version: 3,
		Name:    "create_inventory",
		SQL: `
CREATE TABLE inventory (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	kind       TEXT NOT NULL CHECK (kind IN ('seed', 'veg_raw', 'veg_washed')),
	crop_type  TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL
);
CREATE INDEX idx_inventory_user_kind ON inventory(user_id, kind, crop_type);`,
	},
}

// migrate applies every migration newer than the recorded schema version.
func (db *DB) migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := db.conn.GetContext(ctx, &current, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}
		err := db.WithTx(ctx, func(tx *sqlx.Tx) error {
			if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
				m.Version, m.Name, time.Now().UnixMilli())
			return err
		})
		if err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
		logging.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applied database migration")
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := db.conn.GetContext(ctx, &v, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	return v, err
}
