// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/ferm/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvPath is loaded into the process environment before koanf runs.
// Variables already present in the environment are not overwritten.
var DotEnvPath = ".env"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            3000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:              "data/ferm.db",
			MaxOpenConns:      10,
			BusyTimeout:       5 * time.Second,
			ConnectAttempts:   3,
			ConnectRetryDelay: 2 * time.Second,
		},
		Garden: GardenConfig{
			Slots:         6,
			GrowthMinutes: 10,
		},
		Broker: BrokerConfig{
			Enabled:               true,
			URL:                   "nats://127.0.0.1:4222",
			Embedded:              true,
			Port:                  4222,
			StoreDir:              "data/nats",
			MaxMemory:             64 << 20,
			MaxStore:              1 << 30,
			ClientID:              "ferm-backend",
			StreamName:            "GARDEN",
			ConsumerGroup:         "ferm-planting",
			MaturityConsumerGroup: "ferm-maturity",
			PlantTopic:            "garden_plant",
			MaturityTopic:         "garden_matured",
			ConnectAttempts:       5,
			ConnectRetryDelay:     2 * time.Second,
			AckWait:               30 * time.Second,
			MaxDeliver:            5,
			RetentionDays:         7,
		},
		Scanner: ScannerConfig{
			Interval:     time.Minute,
			DrainLimit:   10,
			DrainTimeout: 2 * time.Second,
			ConsumerLoop: true,
		},
		Email: EmailConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          587,
			From:          "Ferm <noreply@ferm.local>",
			RatePerMinute: 60,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the config file and the
// environment, then validates it.
func Load() (*Config, error) {
	if DotEnvPath != "" {
		if _, err := os.Stat(DotEnvPath); err == nil {
			if err := godotenv.Load(DotEnvPath); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", DotEnvPath, err)
			}
		}
	}

	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths hold comma-separated lists when set from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"port":                  "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	"db_path":                "database.path",
	"db_max_open_conns":      "database.max_open_conns",
	"db_busy_timeout":        "database.busy_timeout",
	"db_connect_attempts":    "database.connect_attempts",
	"db_connect_retry_delay": "database.connect_retry_delay",

	"garden_slots":   "garden.slots",
	"growth_minutes": "garden.growth_minutes",

	"broker_enabled":                 "broker.enabled",
	"broker_url":                     "broker.url",
	"broker_embedded":                "broker.embedded",
	"broker_port":                    "broker.port",
	"broker_store_dir":               "broker.store_dir",
	"broker_max_memory":              "broker.max_memory",
	"broker_max_store":               "broker.max_store",
	"broker_client_id":               "broker.client_id",
	"broker_stream_name":             "broker.stream_name",
	"broker_consumer_group":          "broker.consumer_group",
	"broker_maturity_consumer_group": "broker.maturity_consumer_group",
	"broker_plant_topic":             "broker.plant_topic",
	"broker_maturity_topic":          "broker.maturity_topic",
	"broker_connect_attempts":        "broker.connect_attempts",
	"broker_connect_retry_delay":     "broker.connect_retry_delay",
	"broker_ack_wait":                "broker.ack_wait",
	"broker_max_deliver":             "broker.max_deliver",
	"broker_retention_days":          "broker.retention_days",

	"maturity_check_interval": "scanner.interval",
	"maturity_drain_limit":    "scanner.drain_limit",
	"maturity_drain_timeout":  "scanner.drain_timeout",
	"maturity_consumer_loop":  "scanner.consumer_loop",

	"email_enabled":         "email.enabled",
	"smtp_host":             "email.host",
	"smtp_port":             "email.port",
	"smtp_secure":           "email.secure",
	"smtp_user":             "email.user",
	"smtp_password":         "email.password",
	"email_from":            "email.from",
	"email_rate_per_minute": "email.rate_per_minute",

	"jwt_secret":          "security.jwt_secret",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"authz_policy_path":   "security.policy_path",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc returns "" for unmapped variables so unrelated
// environment entries never leak into the configuration.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
