// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package planting

import (
	"context"
	"errors"
	"testing"
	"time"

	"ferm/internal/config"
	"ferm/internal/database"
	"ferm/internal/eventprocessor"
	"ferm/internal/garden"
)

func startBroker(t *testing.T) *eventprocessor.Broker {
	t.Helper()
	cfg := &config.BrokerConfig{
		Enabled:         true,
		Embedded:        true,
		Port:            -1,
		StoreDir:        t.TempDir(),
		ClientID:        "planting-test",
		StreamName:      "GARDEN",
		PlantTopic:      "garden_plant",
		MaturityTopic:   "garden_matured",
		ConnectAttempts: 1,
		AckWait:         2 * time.Second,
		MaxDeliver:      3,
	}
	b := eventprocessor.NewBroker(eventprocessor.SettingsFromConfig(cfg), nil)
	if err := b.Connect(context.Background()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = b.Close(ctx)
	})
	return b
}

// Seed 7 (carrot) planted on slot 2 by user 1, through the broker.
func TestPipeline_PlantSeedSeven(t *testing.T) {
	svc, db := setupGarden(t)
	insertItem(t, db, 7, database.KindSeed, "carrot")
	broker := startBroker(t)

	sub, err := broker.NewConsumer("ferm-planting", "garden_plant")
	if err != nil {
		t.Fatal(err)
	}
	consumer := NewConsumer(svc, sub)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = consumer.Run(ctx) }()
	defer consumer.Stop()

	producer := NewProducer(broker, svc, "garden_plant")
	before := time.Now()
	receipt, err := producer.Submit(context.Background(), garden.PlantInput{UserID: 1, Slot: 2, InventoryID: 7})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !receipt.Accepted || receipt.RequestID == "" {
		t.Fatalf("receipt = %+v", receipt)
	}

	plots := database.NewPlotStore(db)
	deadline := time.Now().Add(10 * time.Second)
	var plot *database.Plot
	for time.Now().Before(deadline) {
		plot, err = plots.Get(context.Background(), 1, 2)
		if err == nil && plot.CropType.Valid {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}
	if plot == nil || !plot.CropType.Valid {
		t.Fatal("command was not applied")
	}
	if plot.CropType.String != "carrot" || plot.Harvested {
		t.Errorf("plot(1,2) = %+v", plot)
	}
	if plot.PlantedAt.Int64 < before.UnixMilli() {
		t.Errorf("plantedAt %d precedes submit %d", plot.PlantedAt.Int64, before.UnixMilli())
	}
	if _, err := database.NewInventoryStore(db).Get(context.Background(), 7); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("item 7 still present: %v", err)
	}
}

func TestPipeline_UnavailableAfterClose(t *testing.T) {
	svc, _ := setupGarden(t)
	broker := startBroker(t)
	_ = broker.Close(context.Background())

	_, err := NewProducer(broker, svc, "garden_plant").
		Submit(context.Background(), garden.PlantInput{UserID: 1, Slot: 1, InventoryID: 1})
	if !errors.Is(err, garden.ErrServiceUnavailable) {
		t.Errorf("Submit() error = %v, want ErrServiceUnavailable", err)
	}
}
