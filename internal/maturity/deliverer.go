// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package maturity

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"ferm/internal/database"
	"ferm/internal/eventprocessor"
	"ferm/internal/logging"
	"ferm/internal/metrics"
	"ferm/internal/notify"
)

// Delivery results, also used as metric labels.
const (
	ResultDelivered = "delivered"
	ResultFailed    = "failed"
	ResultStale     = "stale"
	ResultUnmarked  = "unmarked"
)

// PlotState is what the Deliverer needs from the plot store.
type PlotState interface {
	Get(ctx context.Context, userID int64, slot int) (*database.Plot, error)
	MarkNotified(ctx context.Context, userID int64, slot int, plantedAt int64) (bool, error)
}

// DeliveryResult is the outcome of one Deliver call.
type DeliveryResult struct {
	Result string
	Send   *notify.Result
}

// Delivered reports whether the email went out.
func (r DeliveryResult) Delivered() bool {
	return r.Result == ResultDelivered || r.Result == ResultUnmarked
}

// Deliverer sends one notification and records it on the plot.
type Deliverer struct {
	plots  PlotState
	sender notify.Sender
	logger zerolog.Logger
}

// NewDeliverer returns a Deliverer sending through sender.
func NewDeliverer(plots PlotState, sender notify.Sender) *Deliverer {
	return &Deliverer{
		plots:  plots,
		sender: sender,
		logger: logging.WithComponent("maturity-deliverer"),
	}
}

// Deliver sends n unless the plot has moved on since n was built. The flag
// is set only after the sender confirms delivery. The returned error is
// non-nil only when the plot could not be read, which is worth a retry.
func (d *Deliverer) Deliver(ctx context.Context, n *eventprocessor.MaturityNotification) (DeliveryResult, error) {
	log := d.logger.With().
		Str("request_id", n.RequestID).
		Int64("user_id", n.UserID).
		Int("slot", n.Slot).
		Logger()

	plot, err := d.plots.Get(ctx, n.UserID, n.Slot)
	if errors.Is(err, database.ErrNotFound) {
		return d.finish(DeliveryResult{Result: ResultStale}), nil
	}
	if err != nil {
		return DeliveryResult{}, fmt.Errorf("read plot: %w", err)
	}
	if !stillPending(plot, n.PlantedAt) {
		log.Debug().Msg("Notification no longer matches the plot, skipping")
		return d.finish(DeliveryResult{Result: ResultStale}), nil
	}

	res, err := d.sender.Send(ctx, notify.MaturityMessage(n.Email, n.CropType, n.Slot))
	if err != nil {
		return DeliveryResult{}, err
	}
	if !res.Delivered {
		log.Warn().Str("code", res.Code).Str("reason", res.Message).
			Msg("Maturity email not delivered, will retry on next scan")
		return d.finish(DeliveryResult{Result: ResultFailed, Send: res}), nil
	}

	marked, err := d.plots.MarkNotified(ctx, n.UserID, n.Slot, n.PlantedAt)
	if err != nil {
		log.Error().Err(err).Msg("Maturity email sent but plot not marked")
		return d.finish(DeliveryResult{Result: ResultUnmarked, Send: res}), nil
	}
	if !marked {
		log.Debug().Msg("Plot changed while the email was in flight")
	}
	log.Info().Str("crop", n.CropType).Msg("Maturity email delivered")
	return d.finish(DeliveryResult{Result: ResultDelivered, Send: res}), nil
}

func (d *Deliverer) finish(r DeliveryResult) DeliveryResult {
	metrics.RecordNotificationDelivery(r.Result)
	return r
}

// stillPending reports whether plot still holds the unharvested,
// unannounced crop planted at plantedAt.
func stillPending(plot *database.Plot, plantedAt int64) bool {
	return plot.CropType.Valid &&
		plot.PlantedAt.Valid &&
		plot.PlantedAt.Int64 == plantedAt &&
		!plot.Harvested &&
		!plot.MaturedNotified
}
