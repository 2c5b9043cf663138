// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package config

import (
	"fmt"
	"strings"
)

// minJWTSecretLength is the shortest HMAC secret accepted for HS256.
const minJWTSecretLength = 32

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateGarden(); err != nil {
		return err
	}
	if err := c.validateBroker(); err != nil {
		return err
	}
	if err := c.validateEmail(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DB_PATH is required")
	}
	if c.Database.ConnectAttempts < 1 {
		return fmt.Errorf("DB_CONNECT_ATTEMPTS must be at least 1, got %d", c.Database.ConnectAttempts)
	}
	return nil
}

func (c *Config) validateGarden() error {
	if c.Garden.Slots < 1 {
		return fmt.Errorf("GARDEN_SLOTS must be positive, got %d", c.Garden.Slots)
	}
	if c.Garden.GrowthMinutes < 1 {
		return fmt.Errorf("GROWTH_MINUTES must be positive, got %d", c.Garden.GrowthMinutes)
	}
	if c.Scanner.Interval <= 0 {
		return fmt.Errorf("MATURITY_CHECK_INTERVAL must be positive, got %s", c.Scanner.Interval)
	}
	return nil
}

// validateBroker only applies when the broker is enabled; a disabled broker
// is a valid deployment in which planting answers 503.
func (c *Config) validateBroker() error {
	b := c.Broker
	if !b.Enabled {
		return nil
	}
	if !b.Embedded && b.URL == "" {
		return fmt.Errorf("BROKER_URL is required when BROKER_EMBEDDED=false")
	}
	if b.PlantTopic == "" || b.MaturityTopic == "" {
		return fmt.Errorf("BROKER_PLANT_TOPIC and BROKER_MATURITY_TOPIC are required when the broker is enabled")
	}
	if b.PlantTopic == b.MaturityTopic {
		return fmt.Errorf("planting and maturity topics must differ, both are %q", b.PlantTopic)
	}
	for _, topic := range []string{b.PlantTopic, b.MaturityTopic} {
		if strings.ContainsAny(topic, " *>") {
			return fmt.Errorf("topic %q must not contain spaces or wildcards", topic)
		}
	}
	if b.ConsumerGroup == "" || b.MaturityConsumerGroup == "" {
		return fmt.Errorf("BROKER_CONSUMER_GROUP and BROKER_MATURITY_CONSUMER_GROUP are required when the broker is enabled")
	}
	if b.StreamName == "" {
		return fmt.Errorf("BROKER_STREAM_NAME is required when the broker is enabled")
	}
	if b.ConnectAttempts < 1 {
		return fmt.Errorf("BROKER_CONNECT_ATTEMPTS must be at least 1, got %d", b.ConnectAttempts)
	}
	return nil
}

func (c *Config) validateEmail() error {
	if !c.Email.Enabled {
		return nil
	}
	if c.Email.Host == "" {
		return fmt.Errorf("SMTP_HOST is required when EMAIL_ENABLED=true")
	}
	if c.Email.Port < 1 || c.Email.Port > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535, got %d", c.Email.Port)
	}
	if c.Email.From == "" {
		return fmt.Errorf("EMAIL_FROM is required when EMAIL_ENABLED=true")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minJWTSecretLength)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a known level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
