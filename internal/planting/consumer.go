// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package planting

import (
	"context"
	"fmt"

	"ferm/internal/eventprocessor"
	"ferm/internal/garden"
	"ferm/internal/logging"
	"ferm/internal/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Planter applies a plant transition.
type Planter interface {
	Plant(ctx context.Context, in garden.PlantInput) (*garden.PlotSnapshot, error)
}

// Consumer applies PlantCommands from the planting topic.
type Consumer struct {
	planter  Planter
	consumer *eventprocessor.Consumer
}

// NewConsumer wires planter to a broker consumer. consumer may be nil when
// only Apply is used.
func NewConsumer(planter Planter, consumer *eventprocessor.Consumer) *Consumer {
	return &Consumer{planter: planter, consumer: consumer}
}

// Name identifies the consumer in logs and the supervisor tree.
func (c *Consumer) Name() string {
	if c.consumer == nil {
		return "planting-consumer"
	}
	return "planting-consumer:" + c.consumer.Group()
}

// Run processes commands until ctx ends or Stop is called.
func (c *Consumer) Run(ctx context.Context) error {
	if c.consumer == nil {
		return fmt.Errorf("planting consumer has no subscription")
	}
	return c.consumer.Run(ctx, c.Handle)
}

// Stop halts Run.
func (c *Consumer) Stop() {
	if c.consumer != nil {
		c.consumer.Stop()
	}
}

// Handle adapts Apply to the broker handler signature.
func (c *Consumer) Handle(ctx context.Context, msg *message.Message) eventprocessor.Outcome {
	return c.Apply(ctx, msg.Payload)
}

// Apply decodes and applies one command. Poison and business rejections are
// dropped; only transient database failures ask for redelivery.
func (c *Consumer) Apply(ctx context.Context, payload []byte) eventprocessor.Outcome {
	var cmd eventprocessor.PlantCommand
	if err := eventprocessor.Decode(payload, &cmd); err != nil {
		err = fmt.Errorf("%w: %v", garden.ErrPoisonMessage, err)
		logging.Warn().Err(err).Int("bytes", len(payload)).Msg("Dropping malformed plant command")
		return eventprocessor.Rejected("poison", err)
	}

	ctx = logging.ContextWithRequestID(ctx, cmd.RequestID)
	log := logging.Ctx(ctx).With().
		Int64("user_id", cmd.UserID).
		Int("slot", cmd.Slot).
		Int64("inventory_id", cmd.InventoryID).
		Logger()

	snap, err := c.planter.Plant(ctx, garden.PlantInput{
		UserID:      cmd.UserID,
		Slot:        cmd.Slot,
		InventoryID: cmd.InventoryID,
	})
	metrics.RecordTransition("plant", err)

	switch {
	case err == nil:
		crop := ""
		if snap != nil && snap.CropType != nil {
			crop = *snap.CropType
		}
		log.Info().Str("crop", crop).Msg("Plant command applied")
		return eventprocessor.Applied()
	case garden.IsValidation(err):
		log.Debug().Err(err).Msg("Plant command rejected")
		return eventprocessor.Rejected("validation", err)
	case garden.IsConflict(err):
		log.Info().Err(err).Msg("Plant command conflicts with plot state")
		return eventprocessor.Rejected("conflict", err)
	case garden.IsTransient(err):
		log.Warn().Err(err).Msg("Plant command hit a transient failure, will retry")
		return eventprocessor.Retry(err)
	default:
		log.Error().Err(err).Msg("Plant command failed")
		return eventprocessor.Retry(err)
	}
}
