// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package eventprocessor

import (
	"time"

	"ferm/internal/config"
)

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns defaults for the embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "data/nats",
		JetStreamMaxMem:   64 << 20,
		JetStreamMaxStore: 1 << 30,
	}
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	ClientName       string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns defaults for the publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024,
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds subscriber configuration. QueueGroup doubles as the
// durable consumer name.
type SubscriberConfig struct {
	URL              string
	ClientName       string
	StreamName       string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration
}

// DefaultSubscriberConfig returns defaults for a subscriber in group.
func DefaultSubscriberConfig(url, stream, group string) SubscriberConfig {
	return SubscriberConfig{
		URL:              url,
		StreamName:       stream,
		QueueGroup:       group,
		SubscribersCount: 1,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,
		MaxAckPending:    256,
		CloseTimeout:     10 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
	}
}

// StreamConfig defines the garden stream.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns the stream carrying both garden topics.
func DefaultStreamConfig(name string, subjects ...string) StreamConfig {
	return StreamConfig{
		Name:            name,
		Subjects:        subjects,
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        256 << 20,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// Settings is everything Broker needs, derived from config.BrokerConfig.
type Settings struct {
	Enabled           bool
	Embedded          bool
	URL               string
	ClientID          string
	ConnectAttempts   int
	ConnectRetryDelay time.Duration

	Server     ServerConfig
	Stream     StreamConfig
	Breaker    CircuitBreakerConfig
	AckWait    time.Duration
	MaxDeliver int
}

// SettingsFromConfig maps the application config onto broker settings.
func SettingsFromConfig(cfg *config.BrokerConfig) Settings {
	server := DefaultServerConfig()
	server.Port = cfg.Port
	if cfg.StoreDir != "" {
		server.StoreDir = cfg.StoreDir
	}
	if cfg.MaxMemory > 0 {
		server.JetStreamMaxMem = cfg.MaxMemory
	}
	if cfg.MaxStore > 0 {
		server.JetStreamMaxStore = cfg.MaxStore
	}

	stream := DefaultStreamConfig(cfg.StreamName, cfg.PlantTopic, cfg.MaturityTopic)
	if cfg.RetentionDays > 0 {
		stream.MaxAge = time.Duration(cfg.RetentionDays) * 24 * time.Hour
	}

	return Settings{
		Enabled:           cfg.Enabled,
		Embedded:          cfg.Embedded,
		URL:               cfg.URL,
		ClientID:          cfg.ClientID,
		ConnectAttempts:   cfg.ConnectAttempts,
		ConnectRetryDelay: cfg.ConnectRetryDelay,
		Server:            server,
		Stream:            stream,
		Breaker:           DefaultCircuitBreakerConfig("broker-publish"),
		AckWait:           cfg.AckWait,
		MaxDeliver:        cfg.MaxDeliver,
	}
}
