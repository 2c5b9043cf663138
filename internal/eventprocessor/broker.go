// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Status is a point-in-time view of the broker for health checks.
type Status struct {
	Enabled   bool   `json:"enabled"`
	Connected bool   `json:"connected"`
	Embedded  bool   `json:"embedded"`
	Breaker   string `json:"breaker,omitempty"`
	Stream    string `json:"stream,omitempty"`
}

// Broker owns the connection, stream, publisher and consumers of the
// garden topics.
type Broker struct {
	settings Settings
	logger   watermill.LoggerAdapter

	mu        sync.RWMutex
	server    *EmbeddedServer
	conn      *natsgo.Conn
	streams   *StreamInitializer
	publisher *Publisher
	breaker   *gobreaker.CircuitBreaker[interface{}]
	consumers []*Consumer
	url       string
	closed    bool
}

// NewBroker returns an unconnected broker.
func NewBroker(settings Settings, logger watermill.LoggerAdapter) *Broker {
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	return &Broker{settings: settings, logger: logger}
}

// Enabled reports whether the broker is switched on in config.
func (b *Broker) Enabled() bool {
	return b.settings.Enabled
}

// URL returns the address clients connect to, once connected.
func (b *Broker) URL() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.url
}

// Connect starts the embedded server if configured, dials the broker with
// bounded retries, provisions the stream and opens the publisher. It
// returns ErrBrokerDisabled when the broker is off and an error wrapping
// ErrBrokerUnavailable when every attempt failed.
func (b *Broker) Connect(ctx context.Context) error {
	if !b.settings.Enabled {
		return ErrBrokerDisabled
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn != nil {
		return nil
	}

	url := b.settings.URL
	if b.settings.Embedded {
		srv, err := NewEmbeddedServer(&b.settings.Server)
		if err != nil {
			return fmt.Errorf("start embedded broker: %w", err)
		}
		b.server = srv
		url = srv.ClientURL()
		b.logger.Info("Embedded JetStream server started", watermill.LogFields{"url": url})
	}

	conn, err := b.dial(ctx, url)
	if err != nil {
		b.shutdownServer()
		return err
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		b.shutdownServer()
		return fmt.Errorf("create JetStream context: %w", err)
	}

	streams, err := NewStreamInitializer(js, &b.settings.Stream)
	if err != nil {
		conn.Close()
		b.shutdownServer()
		return err
	}
	streamCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := streams.EnsureStream(streamCtx); err != nil {
		conn.Close()
		b.shutdownServer()
		return fmt.Errorf("provision stream: %w", err)
	}

	pubCfg := DefaultPublisherConfig(url)
	pubCfg.ClientName = b.settings.ClientID + "-publisher"
	pub, err := NewPublisher(pubCfg, b.logger)
	if err != nil {
		conn.Close()
		b.shutdownServer()
		return err
	}
	b.breaker = NewCircuitBreaker(b.settings.Breaker)
	pub.SetCircuitBreaker(b.breaker)

	b.conn = conn
	b.streams = streams
	b.publisher = pub
	b.url = url
	b.logger.Info("Broker connected", watermill.LogFields{"url": url, "stream": b.settings.Stream.Name})
	return nil
}

// dial connects with at most ConnectAttempts tries.
func (b *Broker) dial(ctx context.Context, url string) (*natsgo.Conn, error) {
	attempts := b.settings.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-time.After(b.settings.ConnectRetryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		conn, err := natsgo.Connect(url,
			natsgo.Name(b.settings.ClientID),
			natsgo.Timeout(5*time.Second),
			natsgo.MaxReconnects(-1),
			natsgo.ReconnectWait(2*time.Second),
		)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		b.logger.Error("Broker connection attempt failed", err, watermill.LogFields{
			"attempt":      attempt,
			"max_attempts": attempts,
			"url":          url,
		})
	}
	return nil, fmt.Errorf("%w: connect to %s after %d attempts: %v", ErrBrokerUnavailable, url, attempts, lastErr)
}

// Available reports whether a publish would be attempted right now.
func (b *Broker) Available() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.settings.Enabled || b.closed || b.conn == nil || b.publisher == nil {
		return false
	}
	if !b.conn.IsConnected() {
		return false
	}
	return b.breaker == nil || b.breaker.State() != gobreaker.StateOpen
}

// Publish sends payload to topic keyed by key.
func (b *Broker) Publish(ctx context.Context, topic, key string, payload []byte) error {
	if !b.settings.Enabled {
		return ErrBrokerDisabled
	}

	b.mu.RLock()
	pub, conn, closed := b.publisher, b.conn, b.closed
	b.mu.RUnlock()

	switch {
	case closed:
		return ErrPublisherClosed
	case pub == nil || conn == nil:
		return fmt.Errorf("%w: not connected", ErrBrokerUnavailable)
	case !conn.IsConnected():
		return fmt.Errorf("%w: connection %s", ErrBrokerUnavailable, conn.Status())
	}

	err := pub.Publish(ctx, topic, key, payload)
	if err != nil && !errors.Is(err, ErrBrokerUnavailable) && !errors.Is(err, ErrPublisherClosed) {
		err = fmt.Errorf("%w: %v", ErrBrokerUnavailable, err)
	}
	return err
}

// PublishPayload encodes p and publishes it under its own key.
func (b *Broker) PublishPayload(ctx context.Context, topic string, p Payload) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	return b.Publish(ctx, topic, p.Key(), data)
}

// NewConsumer opens a dedicated subscriber connection for group on topic.
// The broker closes it on Close.
func (b *Broker) NewConsumer(group, topic string) (*Consumer, error) {
	if !b.settings.Enabled {
		return nil, ErrBrokerDisabled
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrConsumerStopped
	}
	if b.conn == nil {
		return nil, fmt.Errorf("%w: not connected", ErrBrokerUnavailable)
	}

	cfg := DefaultSubscriberConfig(b.url, b.settings.Stream.Name, group)
	cfg.ClientName = b.settings.ClientID + "-" + group
	if b.settings.AckWait > 0 {
		cfg.AckWaitTimeout = b.settings.AckWait
	}
	if b.settings.MaxDeliver > 0 {
		cfg.MaxDeliver = b.settings.MaxDeliver
	}

	sub, err := NewSubscriber(&cfg, b.logger)
	if err != nil {
		return nil, err
	}
	c := NewConsumer(sub, group, topic)
	// The durable consumer starts at new messages, so it has to exist
	// before anything is published for this group.
	if _, err := c.channel(); err != nil {
		_ = c.Close()
		return nil, err
	}
	b.consumers = append(b.consumers, c)
	return c, nil
}

// Status reports the broker state for health checks.
func (b *Broker) Status(ctx context.Context) Status {
	st := Status{Enabled: b.settings.Enabled, Embedded: b.settings.Embedded}
	if !st.Enabled {
		return st
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	st.Connected = !b.closed && b.conn != nil && b.conn.IsConnected()
	if b.breaker != nil {
		st.Breaker = CircuitBreakerState(b.breaker)
	}
	if b.streams != nil && b.streams.IsHealthy(ctx) {
		st.Stream = b.settings.Stream.Name
	}
	return st
}

// Close stops every consumer, then the publisher, the connection and the
// embedded server, in that order.
func (b *Broker) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	for _, c := range b.consumers {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close consumer %s: %w", c.Group(), err))
		}
	}
	if b.publisher != nil {
		if err := b.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if b.conn != nil {
		b.conn.Close()
	}
	if b.server != nil {
		if err := b.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown embedded server: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (b *Broker) shutdownServer() {
	if b.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = b.server.Shutdown(ctx)
	b.server = nil
}
