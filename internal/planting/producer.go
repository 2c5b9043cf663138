// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package planting

import (
	"context"
	"fmt"
	"time"

	"ferm/internal/eventprocessor"
	"ferm/internal/garden"
	"ferm/internal/logging"
	"ferm/internal/metrics"
	"github.com/google/uuid"
)

// Publisher is the part of the broker the producer needs.
type Publisher interface {
	Enabled() bool
	PublishPayload(ctx context.Context, topic string, p eventprocessor.Payload) error
}

// Validator checks a plant request before it is queued.
type Validator interface {
	ValidatePlant(in garden.PlantInput) error
}

// Receipt is returned to the caller once the command is queued.
type Receipt struct {
	Accepted  bool   `json:"accepted"`
	RequestID string `json:"requestId"`
}

// Producer publishes PlantCommands.
type Producer struct {
	publisher Publisher
	validator Validator
	topic     string
	now       func() time.Time
}

// NewProducer returns a Producer publishing to topic.
func NewProducer(publisher Publisher, validator Validator, topic string) *Producer {
	return &Producer{
		publisher: publisher,
		validator: validator,
		topic:     topic,
		now:       time.Now,
	}
}

// Submit validates in and queues it. A nil error means the command is on
// the topic, not that the seed is planted.
func (p *Producer) Submit(ctx context.Context, in garden.PlantInput) (*Receipt, error) {
	if err := p.validator.ValidatePlant(in); err != nil {
		metrics.RecordPlantRequest("invalid")
		return nil, err
	}
	if p.publisher == nil || !p.publisher.Enabled() {
		metrics.RecordPlantRequest("unavailable")
		return nil, fmt.Errorf("%w: planting queue is disabled", garden.ErrServiceUnavailable)
	}

	cmd := &eventprocessor.PlantCommand{
		RequestID:   uuid.NewString(),
		UserID:      in.UserID,
		Slot:        in.Slot,
		InventoryID: in.InventoryID,
		CreatedAt:   p.now().UTC(),
	}

	if err := p.publisher.PublishPayload(ctx, p.topic, cmd); err != nil {
		if eventprocessor.IsUnavailable(err) {
			metrics.RecordPlantRequest("unavailable")
			logging.Ctx(ctx).Warn().Err(err).Str("request_id", cmd.RequestID).Msg("Planting queue unavailable")
			return nil, fmt.Errorf("%w: %v", garden.ErrServiceUnavailable, err)
		}
		metrics.RecordPlantRequest("error")
		return nil, fmt.Errorf("queue plant command: %w", err)
	}

	metrics.RecordPlantRequest("accepted")
	logging.Ctx(ctx).Info().
		Str("request_id", cmd.RequestID).
		Int64("user_id", cmd.UserID).
		Int("slot", cmd.Slot).
		Int64("inventory_id", cmd.InventoryID).
		Msg("Plant command queued")

	return &Receipt{Accepted: true, RequestID: cmd.RequestID}, nil
}
