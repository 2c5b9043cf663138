// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

// Package main is the entry point for the Ferm garden server.
//
// Startup order:
//
//  1. Configuration: .env, defaults, config.yaml, environment (koanf)
//  2. Logging: zerolog
//  3. Database: SQLite with migrations
//  4. Broker: NATS JetStream, embedded by default; startup fails when it is
//     enabled but unreachable, and it is skipped when BROKER_ENABLED=false
//  5. Pipeline: planting consumer, maturity consumer, maturity scanner
//     (the scanner only runs when email is enabled; the maturity consumer
//     loop can be turned off with MATURITY_CONSUMER_LOOP=false so that
//     queued notifications are only delivered by the admin drain)
//  6. HTTP: chi router with JWT and role policy
//
// Everything long-lived runs under a suture supervisor tree. SIGINT and
// SIGTERM stop the tree, then the broker and database are closed.
//
// Example:
//
//	export JWT_SECRET=$(openssl rand -hex 32)
//	export EMAIL_ENABLED=true SMTP_HOST=mail.local EMAIL_FROM=garden@ferm.local
//	./ferm
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"ferm/internal/api"
	"ferm/internal/authz"
	"ferm/internal/config"
	"ferm/internal/database"
	"ferm/internal/eventprocessor"
	"ferm/internal/garden"
	"ferm/internal/logging"
	"ferm/internal/maturity"
	"ferm/internal/notify"
	"ferm/internal/planting"
	"ferm/internal/supervisor"
	"ferm/internal/supervisor/services"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		logging.Fatal().Err(err).Msg("Ferm stopped")
	}
}

// run wires and serves everything until ctx is done.
//
//nolint:gocyclo // sequential wiring
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Bool("broker_enabled", cfg.Broker.Enabled).
		Bool("email_enabled", cfg.Email.Enabled).
		Int("slots", cfg.Garden.Slots).
		Int("growth_minutes", cfg.Garden.GrowthMinutes).
		Msg("Starting Ferm")

	db, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	gardenSvc := garden.NewService(db, cfg.Garden)

	broker := eventprocessor.NewBroker(
		eventprocessor.SettingsFromConfig(&cfg.Broker),
		logging.NewWatermillAdapter(logging.WithComponent("broker")),
	)
	if cfg.Broker.Enabled {
		if err := broker.Connect(ctx); err != nil {
			return fmt.Errorf("connect broker: %w", err)
		}
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := broker.Close(closeCtx); err != nil {
			logging.Error().Err(err).Msg("Error closing broker")
		}
	}()

	sender, err := notify.New(&cfg.Email)
	if err != nil {
		return fmt.Errorf("configure email: %w", err)
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	plants := planting.NewProducer(broker, gardenSvc, cfg.Broker.PlantTopic)
	deliverer := maturity.NewDeliverer(gardenSvc.Plots(), sender)

	var drainer api.NotificationDrainer
	if broker.Enabled() {
		plantSub, err := broker.NewConsumer(cfg.Broker.ConsumerGroup, cfg.Broker.PlantTopic)
		if err != nil {
			return fmt.Errorf("create planting consumer: %w", err)
		}
		plantConsumer := planting.NewConsumer(gardenSvc, plantSub)
		tree.AddPipelineService(services.NewRunnerService(plantConsumer.Name(), plantConsumer))

		maturitySub, err := broker.NewConsumer(cfg.Broker.MaturityConsumerGroup, cfg.Broker.MaturityTopic)
		if err != nil {
			return fmt.Errorf("create maturity consumer: %w", err)
		}
		maturityConsumer := maturity.NewConsumer(deliverer, maturitySub)
		if cfg.Scanner.ConsumerLoop {
			tree.AddPipelineService(services.NewRunnerService(maturityConsumer.Name(), maturityConsumer))
		} else {
			logging.Info().Msg("Maturity consumer loop disabled: queued notifications wait for an admin drain")
		}
		drainer = maturityConsumer
	} else {
		logging.Warn().Msg("Message broker disabled: plant requests and queued notifications are unavailable")
	}

	if sender.Enabled() {
		emitter := maturity.NewProducer(broker, deliverer, cfg.Broker.MaturityTopic)
		scanner := maturity.NewScanner(gardenSvc.Plots(), emitter, maturity.ScannerConfig{
			Interval: cfg.Scanner.Interval,
			Growth:   gardenSvc.GrowthDuration(),
		})
		tree.AddPipelineService(services.NewRunnerService("maturity-scanner", scanner))
		logging.Info().Str("strategy", emitter.Strategy().String()).Dur("interval", cfg.Scanner.Interval).
			Msg("Maturity notifications enabled")
	} else {
		logging.Info().Msg("Email disabled: maturity scanner not started")
	}

	verifier, err := authz.NewVerifier(cfg.Security.JWTSecret)
	if err != nil {
		return fmt.Errorf("configure JWT: %w", err)
	}
	enforcer, err := authz.NewEnforcer(cfg.Security.PolicyPath)
	if err != nil {
		return fmt.Errorf("load authorization policy: %w", err)
	}

	handler := api.NewHandler(api.HandlerDeps{
		Garden:          gardenSvc,
		Planter:         plants,
		Drainer:         drainer,
		DB:              db,
		Broker:          broker,
		Enforcer:        enforcer,
		NotifierEnabled: sender.Enabled(),
		DrainLimit:      cfg.Scanner.DrainLimit,
		DrainTimeout:    cfg.Scanner.DrainTimeout,
	})

	chiCfg := api.DefaultChiMiddlewareConfig()
	chiCfg.CORSAllowedOrigins = cfg.Security.CORSOrigins
	chiCfg.RateLimitRequests = cfg.Security.RateLimitReqs
	chiCfg.RateLimitWindow = cfg.Security.RateLimitWindow
	router := api.NewRouter(handler, api.NewChiMiddleware(chiCfg), verifier, enforcer)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("supervisor tree: %w", err)
		}
		return nil
	}

	select {
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("supervisor tree: %w", err)
		}
	case <-time.After(cfg.Server.ShutdownTimeout + 5*time.Second):
		if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
			for _, svc := range report {
				logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
			}
		}
	}

	logging.Info().Msg("Ferm stopped")
	return nil
}
