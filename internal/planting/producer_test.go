// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package planting

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"ferm/internal/config"
	"ferm/internal/eventprocessor"
	"ferm/internal/garden"
	"github.com/google/uuid"
)

type fakePublisher struct {
	enabled bool
	err     error
	topic   string
	sent    []eventprocessor.Payload
}

func (f *fakePublisher) Enabled() bool { return f.enabled }

func (f *fakePublisher) PublishPayload(ctx context.Context, topic string, p eventprocessor.Payload) error {
	if f.err != nil {
		return f.err
	}
	f.topic = topic
	f.sent = append(f.sent, p)
	return nil
}

// A Service with no database is enough for ValidatePlant.
func validatorOnly() *garden.Service {
	return garden.NewService(nil, config.GardenConfig{Slots: 6, GrowthMinutes: 10})
}

func TestProducer_Submit(t *testing.T) {
	pub := &fakePublisher{enabled: true}
	p := NewProducer(pub, validatorOnly(), "garden_plant")

	receipt, err := p.Submit(context.Background(), garden.PlantInput{UserID: 1, Slot: 2, InventoryID: 7})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !receipt.Accepted {
		t.Error("Accepted = false")
	}
	if _, err := uuid.Parse(receipt.RequestID); err != nil {
		t.Errorf("RequestID %q is not a UUID", receipt.RequestID)
	}

	if pub.topic != "garden_plant" || len(pub.sent) != 1 {
		t.Fatalf("published to %q: %v", pub.topic, pub.sent)
	}
	cmd, ok := pub.sent[0].(*eventprocessor.PlantCommand)
	if !ok {
		t.Fatalf("payload type %T", pub.sent[0])
	}
	if cmd.RequestID != receipt.RequestID || cmd.UserID != 1 || cmd.Slot != 2 || cmd.InventoryID != 7 {
		t.Errorf("command = %+v", cmd)
	}
	if cmd.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestProducer_SubmitErrors(t *testing.T) {
	tests := []struct {
		name            string
		pub             *fakePublisher
		in              garden.PlantInput
		wantValidation  bool
		wantUnavailable bool
	}{
		{
			name:           "zero slot",
			pub:            &fakePublisher{enabled: true},
			in:             garden.PlantInput{UserID: 1, Slot: 0, InventoryID: 7},
			wantValidation: true,
		},
		{
			name:           "negative item",
			pub:            &fakePublisher{enabled: true},
			in:             garden.PlantInput{UserID: 1, Slot: 1, InventoryID: -1},
			wantValidation: true,
		},
		{
			name:            "broker disabled",
			pub:             &fakePublisher{enabled: false},
			in:              garden.PlantInput{UserID: 1, Slot: 1, InventoryID: 7},
			wantUnavailable: true,
		},
		{
			name:            "broker unreachable",
			pub:             &fakePublisher{enabled: true, err: fmt.Errorf("%w: connection closed", eventprocessor.ErrBrokerUnavailable)},
			in:              garden.PlantInput{UserID: 1, Slot: 1, InventoryID: 7},
			wantUnavailable: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewProducer(tt.pub, validatorOnly(), "garden_plant")
			receipt, err := p.Submit(context.Background(), tt.in)
			if receipt != nil {
				t.Errorf("receipt = %+v, want nil", receipt)
			}
			if got := garden.IsValidation(err); got != tt.wantValidation {
				t.Errorf("IsValidation(%v) = %v", err, got)
			}
			if got := errors.Is(err, garden.ErrServiceUnavailable); got != tt.wantUnavailable {
				t.Errorf("ServiceUnavailable(%v) = %v", err, got)
			}
			if len(tt.pub.sent) != 0 {
				t.Errorf("published %d messages on failure", len(tt.pub.sent))
			}
		})
	}
}
