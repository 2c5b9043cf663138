// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package maturity

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"ferm/internal/eventprocessor"
	"ferm/internal/garden"
	"ferm/internal/logging"
)

// Drain defaults.
const (
	DefaultDrainLimit   = 10
	DefaultDrainTimeout = 2 * time.Second
)

// Consumer delivers MaturityNotifications from the maturity topic.
type Consumer struct {
	deliverer *Deliverer
	consumer  *eventprocessor.Consumer
}

// NewConsumer wires deliverer to a broker consumer. consumer may be nil
// when only Apply is used.
func NewConsumer(deliverer *Deliverer, consumer *eventprocessor.Consumer) *Consumer {
	return &Consumer{deliverer: deliverer, consumer: consumer}
}

// Name identifies the consumer in logs and the supervisor tree.
func (c *Consumer) Name() string {
	if c.consumer == nil {
		return "maturity-consumer"
	}
	return "maturity-consumer:" + c.consumer.Group()
}

// Run processes notifications until ctx ends or Stop is called.
func (c *Consumer) Run(ctx context.Context) error {
	if c.consumer == nil {
		return fmt.Errorf("maturity consumer has no subscription")
	}
	return c.consumer.Run(ctx, c.Handle)
}

// Drain processes at most limit notifications or until timeout, whichever
// comes first, and returns what happened. Non-positive arguments use the
// defaults.
func (c *Consumer) Drain(ctx context.Context, limit int, timeout time.Duration) (eventprocessor.DrainResult, error) {
	if c.consumer == nil {
		return eventprocessor.DrainResult{}, fmt.Errorf("%w: maturity consumer has no subscription", garden.ErrServiceUnavailable)
	}
	if limit <= 0 {
		limit = DefaultDrainLimit
	}
	if timeout <= 0 {
		timeout = DefaultDrainTimeout
	}
	res, err := c.consumer.Drain(ctx, c.Handle, limit, timeout)
	if eventprocessor.IsUnavailable(err) {
		return res, fmt.Errorf("%w: %v", garden.ErrServiceUnavailable, err)
	}
	return res, err
}

// Stop halts Run and Drain.
func (c *Consumer) Stop() {
	if c.consumer != nil {
		c.consumer.Stop()
	}
}

// Handle adapts Apply to the broker handler signature.
func (c *Consumer) Handle(ctx context.Context, msg *message.Message) eventprocessor.Outcome {
	return c.Apply(ctx, msg.Payload)
}

// Apply decodes and delivers one notification. Only a failure to read the
// plot is retried; an undelivered email is acked and left to the next
// scan.
func (c *Consumer) Apply(ctx context.Context, payload []byte) eventprocessor.Outcome {
	var n eventprocessor.MaturityNotification
	if err := eventprocessor.Decode(payload, &n); err != nil {
		err = fmt.Errorf("%w: %v", garden.ErrPoisonMessage, err)
		logging.Warn().Err(err).Int("bytes", len(payload)).Msg("Dropping malformed maturity notification")
		return eventprocessor.Rejected("poison", err)
	}

	ctx = logging.ContextWithRequestID(ctx, n.RequestID)
	res, err := c.deliverer.Deliver(ctx, &n)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Maturity notification will be retried")
		return eventprocessor.Retry(err)
	}

	switch res.Result {
	case ResultDelivered:
		return eventprocessor.Applied()
	case ResultUnmarked:
		return eventprocessor.Rejected(ResultUnmarked, nil)
	case ResultStale:
		return eventprocessor.Rejected(ResultStale, nil)
	default:
		return eventprocessor.Rejected(ResultFailed, fmt.Errorf("delivery failed: %s", res.Send.Code))
	}
}
