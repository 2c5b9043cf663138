// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package maturity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ferm/internal/database"
	"ferm/internal/eventprocessor"
	"ferm/internal/logging"
	"ferm/internal/metrics"
)

// Strategy is how a notification reaches the Deliverer.
type Strategy int

const (
	// QueuedDelivery publishes to the maturity topic.
	QueuedDelivery Strategy = iota
	// DirectDelivery calls the Deliverer in the scanner's goroutine.
	DirectDelivery
)

func (s Strategy) String() string {
	if s == DirectDelivery {
		return "direct"
	}
	return "queued"
}

// Broker is the part of the broker client the producer needs.
type Broker interface {
	Available() bool
	PublishPayload(ctx context.Context, topic string, p eventprocessor.Payload) error
}

// Producer turns matured plots into notifications.
type Producer struct {
	broker    Broker
	deliverer *Deliverer
	topic     string
	now       func() time.Time
}

// NewProducer returns a Producer. broker may be nil, in which case every
// notification is delivered directly.
func NewProducer(broker Broker, deliverer *Deliverer, topic string) *Producer {
	return &Producer{
		broker:    broker,
		deliverer: deliverer,
		topic:     topic,
		now:       time.Now,
	}
}

// Strategy picks the delivery path for a notification emitted now.
func (p *Producer) Strategy() Strategy {
	if p.broker != nil && p.broker.Available() {
		return QueuedDelivery
	}
	return DirectDelivery
}

// Emit builds the notification for plot and sends it down the current
// strategy. A publish that fails after Available said yes falls back to
// direct delivery.
func (p *Producer) Emit(ctx context.Context, plot database.MaturedPlot) (Strategy, error) {
	n := &eventprocessor.MaturityNotification{
		RequestID: uuid.NewString(),
		UserID:    plot.UserID,
		Slot:      plot.Slot,
		CropType:  plot.CropType,
		Email:     plot.Email,
		PlantedAt: plot.PlantedAt,
		CreatedAt: p.now().UTC(),
	}

	strategy := p.Strategy()
	if strategy == QueuedDelivery {
		err := p.broker.PublishPayload(ctx, p.topic, n)
		if err == nil || !eventprocessor.IsUnavailable(err) {
			metrics.RecordNotificationEmitted(strategy.String(), err)
			return strategy, err
		}
		metrics.RecordNotificationEmitted(strategy.String(), err)
		logging.Warn().Err(err).Str("request_id", n.RequestID).
			Msg("Broker became unavailable, delivering notification directly")
		strategy = DirectDelivery
	}

	res, err := p.deliverer.Deliver(ctx, n)
	if err == nil && res.Result == ResultFailed {
		err = fmt.Errorf("direct delivery failed: %s", res.Send.Code)
	}
	metrics.RecordNotificationEmitted(strategy.String(), err)
	return strategy, err
}
