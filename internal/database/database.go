// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

// Package database owns the SQLite store behind the garden: the plots table
// (Plot Store), the inventory table (Inventory Store) and the users table the
// maturity scanner joins against.
//
// All mutations run through WithTx. Connections are opened with
// _txlock=immediate, so every transaction takes the database write lock at
// BEGIN and holds it until commit or rollback. A second writer blocks (up to
// the configured busy timeout) instead of interleaving, which gives each
// read-modify-write on a plot or inventory row the same isolation a
// SELECT ... FOR UPDATE would.
package database

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ferm/internal/config"
	"ferm/internal/logging"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// DB wraps the sqlx connection pool.
type DB struct {
	conn *sqlx.DB
	cfg  config.DatabaseConfig
}

// Open connects to the SQLite file described by cfg and applies pending
// migrations. Connection failures are retried cfg.ConnectAttempts times with
// cfg.ConnectRetryDelay between attempts; exhausting them returns the last
// error so startup can fail fast.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config required")
	}
	if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(cfg.ConnectRetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		db, err := connect(ctx, cfg)
		if err == nil {
			return db, nil
		}
		lastErr = err
		logging.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", attempts).
			Str("path", cfg.Path).Msg("Database connection attempt failed")
	}
	return nil, fmt.Errorf("connect to database after %d attempts: %w", attempts, lastErr)
}

func connect(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	conn, err := sqlx.Open("sqlite", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	db := &DB{conn: conn, cfg: *cfg}
	db.configureConnectionPool()

	if err := db.migrate(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return db, nil
}

// buildDSN encodes the pragmas every pooled connection needs.
func buildDSN(cfg *config.DatabaseConfig) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busy.Milliseconds()))
	params.Add("_pragma", "journal_mode(WAL)")
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "synchronous(NORMAL)")
	params.Set("_txlock", "immediate")

	path := cfg.Path
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?" + params.Encode()
}

func (db *DB) configureConnectionPool() {
	maxOpen := db.cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	db.conn.SetMaxOpenConns(maxOpen)
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
	db.conn.SetConnMaxLifetime(time.Hour)
}

// Conn exposes the pool for read-only queries outside a transaction.
func (db *DB) Conn() *sqlx.DB {
	return db.conn
}

// Ping checks that the database answers.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close releases the pool.
func (db *DB) Close() error {
	return db.conn.Close()
}
