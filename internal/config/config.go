// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

// Package config loads Ferm configuration from defaults, an optional YAML
// file, and environment variables (in that order of precedence, lowest
// first) using koanf.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Garden   GardenConfig   `koanf:"garden"`
	Broker   BrokerConfig   `koanf:"broker"`
	Scanner  ScannerConfig  `koanf:"scanner"`
	Email    EmailConfig    `koanf:"email"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig configures the SQLite store.
type DatabaseConfig struct {
	// Path to the SQLite file. The directory is created if missing.
	Path string `koanf:"path"`

	MaxOpenConns int `koanf:"max_open_conns"`

	// BusyTimeout is how long a writer waits for the write lock held by
	// another transaction before failing with SQLITE_BUSY.
	BusyTimeout time.Duration `koanf:"busy_timeout"`

	// ConnectAttempts bounds the startup connection retries.
	ConnectAttempts   int           `koanf:"connect_attempts"`
	ConnectRetryDelay time.Duration `koanf:"connect_retry_delay"`
}

// GardenConfig holds the plot lifecycle parameters.
type GardenConfig struct {
	Slots         int `koanf:"slots"`
	GrowthMinutes int `koanf:"growth_minutes"`
}

// GrowthDuration returns GrowthMinutes as a time.Duration.
func (g GardenConfig) GrowthDuration() time.Duration {
	return time.Duration(g.GrowthMinutes) * time.Minute
}

// BrokerConfig configures the NATS JetStream broker used for the planting
// and maturity topics.
type BrokerConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`

	// Embedded starts an in-process JetStream server and ignores URL.
	// Port is its client port; -1 picks a free one.
	Embedded  bool   `koanf:"embedded"`
	Port      int    `koanf:"port"`
	StoreDir  string `koanf:"store_dir"`
	MaxMemory int64  `koanf:"max_memory"`
	MaxStore  int64  `koanf:"max_store"`

	ClientID              string `koanf:"client_id"`
	StreamName            string `koanf:"stream_name"`
	ConsumerGroup         string `koanf:"consumer_group"`
	MaturityConsumerGroup string `koanf:"maturity_consumer_group"`
	PlantTopic            string `koanf:"plant_topic"`
	MaturityTopic         string `koanf:"maturity_topic"`

	ConnectAttempts   int           `koanf:"connect_attempts"`
	ConnectRetryDelay time.Duration `koanf:"connect_retry_delay"`
	AckWait           time.Duration `koanf:"ack_wait"`
	MaxDeliver        int           `koanf:"max_deliver"`
	RetentionDays     int           `koanf:"retention_days"`
}

// ScannerConfig configures the maturity scanner loop.
type ScannerConfig struct {
	Interval time.Duration `koanf:"interval"`

	// DrainLimit and DrainTimeout are the defaults for a bounded batch
	// drain of the notification topic.
	DrainLimit   int           `koanf:"drain_limit"`
	DrainTimeout time.Duration `koanf:"drain_timeout"`

	// ConsumerLoop runs the maturity consumer continuously. With it off,
	// queued notifications are only delivered by the admin drain endpoint.
	ConsumerLoop bool `koanf:"consumer_loop"`
}

// EmailConfig configures outbound SMTP delivery.
type EmailConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Secure   bool   `koanf:"secure"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`

	// RatePerMinute caps outbound messages. 0 disables the limit.
	RatePerMinute int `koanf:"rate_per_minute"`
}

// SecurityConfig configures bearer authentication and HTTP guards.
type SecurityConfig struct {
	JWTSecret       string        `koanf:"jwt_secret"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_requests"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// PolicyPath overrides the built-in role policy with a casbin CSV file.
	PolicyPath string `koanf:"policy_path"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}
