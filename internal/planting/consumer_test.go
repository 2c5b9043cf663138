// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package planting

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ferm/internal/config"
	"ferm/internal/database"
	"ferm/internal/eventprocessor"
	"ferm/internal/garden"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func setupGarden(t *testing.T) (*garden.Service, *database.DB) {
	t.Helper()
	db, err := database.Open(context.Background(), &config.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "planting.db"),
		ConnectAttempts: 1,
		BusyTimeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	svc := garden.NewService(db, config.GardenConfig{Slots: 6, GrowthMinutes: 10})
	if err := svc.EnsurePlayer(context.Background(), 1, "p@example.com"); err != nil {
		t.Fatal(err)
	}
	return svc, db
}

// insertItem puts a row with a fixed id so tests can refer to it.
func insertItem(t *testing.T, db *database.DB, id int64, kind, crop string) {
	t.Helper()
	ctx := context.Background()
	err := db.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO inventory (id, user_id, kind, crop_type, status, created_at) VALUES (?, 1, ?, ?, '', 0)`,
			id, kind, crop)
		return err
	})
	if err != nil {
		t.Fatal(err)
	}
}

func commandPayload(t *testing.T, slot int, item int64) []byte {
	t.Helper()
	data, err := json.Marshal(&eventprocessor.PlantCommand{
		RequestID:   uuid.NewString(),
		UserID:      1,
		Slot:        slot,
		InventoryID: item,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestConsumer_ApplyOutcomes(t *testing.T) {
	svc, db := setupGarden(t)
	insertItem(t, db, 7, database.KindSeed, "carrot")
	insertItem(t, db, 8, database.KindWashedVeg, "radish")
	insertItem(t, db, 9, database.KindSeed, "mango")
	c := NewConsumer(svc, nil)
	ctx := context.Background()

	first := commandPayload(t, 2, 7)

	tests := []struct {
		name    string
		payload []byte
		want    eventprocessor.OutcomeKind
		reason  string
	}{
		{"valid seed", first, eventprocessor.OutcomeApplied, ""},
		{"replayed command", first, eventprocessor.OutcomeRejected, "validation"},
		{"occupied plot", commandPayload(t, 2, 9), eventprocessor.OutcomeRejected, "conflict"},
		{"not a seed", commandPayload(t, 3, 8), eventprocessor.OutcomeRejected, "validation"},
		{"unknown item", commandPayload(t, 3, 999), eventprocessor.OutcomeRejected, "validation"},
		{"garbage", []byte("not json"), eventprocessor.OutcomeRejected, "poison"},
		{"missing fields", []byte(`{"slot":1}`), eventprocessor.OutcomeRejected, "poison"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := c.Apply(ctx, tt.payload)
			if out.Kind != tt.want || out.Reason != tt.reason {
				t.Fatalf("Apply() = %v, want %v (%s)", out, tt.want, tt.reason)
			}
		})
	}

	// The poison outcome carries the taxonomy sentinel.
	if out := c.Apply(ctx, []byte("{")); !errors.Is(out.Err, garden.ErrPoisonMessage) {
		t.Errorf("poison Err = %v, want ErrPoisonMessage", out.Err)
	}

	// Rejections left everything else untouched.
	plot, _ := database.NewPlotStore(db).Get(ctx, 1, 3)
	if plot.CropType.Valid {
		t.Errorf("plot 3 changed: %+v", plot)
	}
	for _, id := range []int64{8, 9} {
		if _, err := database.NewInventoryStore(db).Get(ctx, id); err != nil {
			t.Errorf("item %d missing: %v", id, err)
		}
	}
}

type failingPlanter struct{ err error }

func (f failingPlanter) Plant(ctx context.Context, in garden.PlantInput) (*garden.PlotSnapshot, error) {
	return nil, f.err
}

func TestConsumer_InfrastructureFailuresRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"transient", &garden.TransientError{Op: "plant", Err: errors.New("database is locked")}},
		{"unexpected", errors.New("disk I/O error")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConsumer(failingPlanter{err: tt.err}, nil)
			out := c.Apply(context.Background(), commandPayload(t, 1, 1))
			if out.Kind != eventprocessor.OutcomeRetry {
				t.Errorf("Apply() = %v, want retry", out)
			}
		})
	}
}

func TestConsumer_RunWithoutSubscription(t *testing.T) {
	c := NewConsumer(failingPlanter{}, nil)
	if err := c.Run(context.Background()); err == nil {
		t.Error("Run() without a subscription should fail")
	}
	c.Stop()
	if c.Name() != "planting-consumer" {
		t.Errorf("Name() = %q", c.Name())
	}
}
