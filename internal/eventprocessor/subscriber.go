// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ferm/internal/metrics"
	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
)

// Subscriber wraps a durable JetStream queue subscriber.
type Subscriber struct {
	subscriber message.Subscriber
	config     SubscriberConfig
	logger     watermill.LoggerAdapter
}

// NewSubscriber creates a subscriber bound to the pre-created stream. The
// durable consumer starts from the first retained message; replays are
// harmless because every handler re-validates state.
func NewSubscriber(cfg *SubscriberConfig, logger watermill.LoggerAdapter) (*Subscriber, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if cfg.StreamName == "" || cfg.QueueGroup == "" {
		return nil, fmt.Errorf("%w: stream name and queue group required", ErrInvalidConfig)
	}

	natsOpts := []natsgo.Option{
		natsgo.Name(cfg.ClientName),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("Subscriber disconnected", err, watermill.LogFields{"group": cfg.QueueGroup})
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("Subscriber reconnected", watermill.LogFields{
				"url":   nc.ConnectedUrl(),
				"group": cfg.QueueGroup,
			})
		}),
	}

	subOpts := []natsgo.SubOpt{
		natsgo.MaxDeliver(cfg.MaxDeliver),
		natsgo.MaxAckPending(cfg.MaxAckPending),
		natsgo.AckWait(cfg.AckWaitTimeout),
		natsgo.DeliverNew(),
		natsgo.BindStream(cfg.StreamName),
	}

	wmConfig := wmNats.SubscriberConfig{
		URL:              cfg.URL,
		QueueGroupPrefix: cfg.QueueGroup,
		SubscribersCount: cfg.SubscribersCount,
		AckWaitTimeout:   cfg.AckWaitTimeout,
		CloseTimeout:     cfg.CloseTimeout,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:         false,
			AutoProvision:    false,
			AckAsync:         false,
			SubscribeOptions: subOpts,
			DurablePrefix:    cfg.QueueGroup,
		},
	}

	sub, err := wmNats.NewSubscriber(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill subscriber: %w", err)
	}

	return &Subscriber{subscriber: sub, config: *cfg, logger: logger}, nil
}

// Subscribe returns the message channel for topic.
func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, topic)
}

// Close shuts down the subscriber.
func (s *Subscriber) Close() error {
	return s.subscriber.Close()
}

// Handler processes one message and reports what happened to it.
type Handler func(ctx context.Context, msg *message.Message) Outcome

// DrainResult summarizes a bounded drain.
type DrainResult struct {
	Processed int `json:"processed"`
	Applied   int `json:"applied"`
	Rejected  int `json:"rejected"`
	Retried   int `json:"retried"`
}

func (r *DrainResult) add(o Outcome) {
	r.Processed++
	switch o.Kind {
	case OutcomeApplied:
		r.Applied++
	case OutcomeRejected:
		r.Rejected++
	case OutcomeRetry:
		r.Retried++
	}
}

// Consumer reads one topic under one consumer group. Run and Drain share a
// single subscription that lives until Stop, so draining never tears down
// the durable consumer.
type Consumer struct {
	group      string
	topic      string
	subscriber *Subscriber
	logger     watermill.LoggerAdapter

	mu       sync.Mutex
	life     context.Context
	stop     context.CancelFunc
	messages <-chan *message.Message
	stopped  bool
}

// NewConsumer binds a Consumer for topic to sub.
func NewConsumer(sub *Subscriber, group, topic string) *Consumer {
	life, stop := context.WithCancel(context.Background())
	return &Consumer{
		group:      group,
		topic:      topic,
		subscriber: sub,
		logger:     sub.logger.With(watermill.LogFields{"group": group, "topic": topic}),
		life:       life,
		stop:       stop,
	}
}

// Group returns the consumer group name.
func (c *Consumer) Group() string { return c.group }

// Topic returns the subscribed topic.
func (c *Consumer) Topic() string { return c.topic }

func (c *Consumer) channel() (<-chan *message.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil, ErrConsumerStopped
	}
	if c.messages != nil {
		return c.messages, nil
	}
	messages, err := c.subscriber.Subscribe(c.life, c.topic)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}
	c.messages = messages
	return messages, nil
}

// Run feeds messages to h until ctx is done or Stop is called. Per-message
// failures never end the loop.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	messages, err := c.channel()
	if err != nil {
		return err
	}
	c.logger.Info("Consumer started", nil)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.life.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			c.process(ctx, msg, h)
		}
	}
}

// Drain processes at most limit messages, giving up after timeout. It
// returns what it managed to process; an empty topic is not an error.
func (c *Consumer) Drain(ctx context.Context, h Handler, limit int, timeout time.Duration) (DrainResult, error) {
	var res DrainResult
	messages, err := c.channel()
	if err != nil {
		return res, err
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for res.Processed < limit {
		select {
		case <-ctx.Done():
			return res, nil
		case <-c.life.Done():
			return res, nil
		case msg, ok := <-messages:
			if !ok {
				return res, nil
			}
			res.add(c.process(ctx, msg, h))
		}
	}
	return res, nil
}

// process runs h on msg and settles it. A panic in h becomes a Rejected
// outcome so it cannot escape the loop.
func (c *Consumer) process(ctx context.Context, msg *message.Message, h Handler) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Rejected("panic", fmt.Errorf("handler panic: %v", r))
			c.logger.Error("Handler panicked, dropping message", out.Err, watermill.LogFields{"message_uuid": msg.UUID})
			msg.Ack()
			metrics.RecordMessageOutcome(c.topic, out.Kind.String())
		}
	}()

	out = h(ctx, msg)
	switch out.Kind {
	case OutcomeRetry:
		msg.Nack()
	default:
		msg.Ack()
	}
	metrics.RecordMessageOutcome(c.topic, out.Kind.String())
	return out
}

// Stop ends Run and Drain and releases the subscription. It is safe to
// call more than once.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	c.stop()
}

// Close stops the consumer and its subscriber connection.
func (c *Consumer) Close() error {
	c.Stop()
	return c.subscriber.Close()
}
