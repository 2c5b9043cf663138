// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package maturity

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ferm/internal/config"
	"ferm/internal/database"
	"ferm/internal/garden"
	"ferm/internal/notify"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeSender records every message and fails while fail is set.
type fakeSender struct {
	mu   sync.Mutex
	fail bool
	sent []*notify.Message
}

func (f *fakeSender) Send(ctx context.Context, msg *notify.Message) (*notify.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return &notify.Result{Code: notify.CodeConnectionFailed, Transient: true}, nil
	}
	f.sent = append(f.sent, msg)
	return &notify.Result{Delivered: true, DeliveredAt: time.Now()}, nil
}

func (f *fakeSender) Enabled() bool { return true }

func (f *fakeSender) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeSender) last() *notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

type fixture struct {
	db     *database.DB
	garden *garden.Service
	clock  *fakeClock
	sender *fakeSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.Open(context.Background(), &config.DatabaseConfig{
		Path:            filepath.Join(t.TempDir(), "maturity.db"),
		ConnectAttempts: 1,
		BusyTimeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	clock := newFakeClock()
	svc := garden.NewService(db, config.GardenConfig{Slots: 6, GrowthMinutes: 10}, garden.WithClock(clock.Now))
	if err := svc.EnsurePlayer(context.Background(), 1, "p@example.com"); err != nil {
		t.Fatal(err)
	}
	return &fixture{db: db, garden: svc, clock: clock, sender: &fakeSender{}}
}

// plant grants a seed of crop and plants it in slot at the current clock.
func (f *fixture) plant(t *testing.T, slot int, crop garden.CropType) {
	t.Helper()
	ctx := context.Background()
	item, err := f.garden.GrantSeed(ctx, 1, crop)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.garden.Plant(ctx, garden.PlantInput{UserID: 1, Slot: slot, InventoryID: item.ID}); err != nil {
		t.Fatalf("Plant(slot %d) error = %v", slot, err)
	}
}

func (f *fixture) plot(t *testing.T, slot int) *database.Plot {
	t.Helper()
	p, err := f.garden.Plots().Get(context.Background(), 1, slot)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func (f *fixture) deliverer() *Deliverer {
	return NewDeliverer(f.garden.Plots(), f.sender)
}

func (f *fixture) scanner(emitter Emitter) *Scanner {
	return NewScanner(f.garden.Plots(), emitter, ScannerConfig{
		Interval: time.Minute,
		Growth:   f.garden.GrowthDuration(),
		Now:      f.clock.Now,
	})
}
