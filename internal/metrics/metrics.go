// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

// Package metrics holds the Prometheus collectors for the garden pipeline:
// HTTP traffic, broker publishes and consumer outcomes, the maturity scanner
// and notification delivery. Collectors register on the default registry
// through promauto and are exposed at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferm_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ferm_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferm_api_active_requests",
			Help: "Number of in-flight API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferm_api_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter",
		},
		[]string{"endpoint"},
	)

	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferm_authz_decisions_total",
			Help: "Authorization decisions by role, object and decision (allow, deny)",
		},
		[]string{"role", "object", "decision"},
	)

	// Garden Metrics
	PlantRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferm_plant_requests_total",
			Help: "Plant requests by result (accepted, invalid, unavailable, error)",
		},
		[]string{"result"},
	)

	GardenTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferm_garden_transitions_total",
			Help: "Plot state transitions by operation and result",
		},
		[]string{"operation", "result"},
	)

	// Broker Metrics
	BrokerPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferm_broker_published_total",
			Help: "Messages published per topic",
		},
		[]string{"topic"},
	)

	BrokerPublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferm_broker_publish_failures_total",
			Help: "Failed publishes per topic",
		},
		[]string{"topic"},
	)

	BrokerMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferm_broker_messages_total",
			Help: "Consumed messages per topic and outcome (applied, rejected, retry)",
		},
		[]string{"topic", "outcome"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ferm_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Maturity Metrics
	MaturityScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferm_maturity_scans_total",
			Help: "Maturity scan iterations by result (ok, error, skipped)",
		},
		[]string{"result"},
	)

	MaturityScanDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ferm_maturity_scan_duration_seconds",
			Help:    "Duration of one maturity scan",
			Buckets: prometheus.DefBuckets,
		},
	)

	MaturedPlotsFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ferm_matured_plots_found_total",
			Help: "Matured, un-notified plots found by the scanner",
		},
	)

	NotificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferm_notifications_emitted_total",
			Help: "Maturity notifications emitted by strategy (queued, direct) and result",
		},
		[]string{"strategy", "result"},
	)

	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferm_notifications_delivered_total",
			Help: "Maturity notification deliveries by result (delivered, failed, skipped, stale)",
		},
		[]string{"result"},
	)
)

// RecordAPIRequest records one finished API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRateLimitHit counts a request refused by the rate limiter.
func RecordRateLimitHit(endpoint string) {
	APIRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordAuthzDecision counts one policy check.
func RecordAuthzDecision(role, object string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	AuthzDecisions.WithLabelValues(role, object, decision).Inc()
}

// RecordPlantRequest counts a plant request by result.
func RecordPlantRequest(result string) {
	PlantRequests.WithLabelValues(result).Inc()
}

// RecordTransition counts a plot transition attempt.
func RecordTransition(operation string, err error) {
	GardenTransitions.WithLabelValues(operation, resultLabel(err)).Inc()
}

// RecordBrokerPublish counts a publish attempt on topic.
func RecordBrokerPublish(topic string, err error) {
	if err != nil {
		BrokerPublishFailures.WithLabelValues(topic).Inc()
		return
	}
	BrokerPublished.WithLabelValues(topic).Inc()
}

// RecordMessageOutcome counts one consumed message.
func RecordMessageOutcome(topic, outcome string) {
	BrokerMessages.WithLabelValues(topic, outcome).Inc()
}

// SetCircuitBreakerState exports a breaker state using gobreaker's numbering.
func SetCircuitBreakerState(name string, state int) {
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// RecordMaturityScan records one scanner iteration.
func RecordMaturityScan(duration time.Duration, found int, err error) {
	MaturityScanDuration.Observe(duration.Seconds())
	MaturityScans.WithLabelValues(resultLabel(err)).Inc()
	if found > 0 {
		MaturedPlotsFound.Add(float64(found))
	}
}

// RecordMaturityScanSkipped counts a tick dropped because a scan was still
// running.
func RecordMaturityScanSkipped() {
	MaturityScans.WithLabelValues("skipped").Inc()
}

// RecordNotificationEmitted counts a notification handed to strategy.
func RecordNotificationEmitted(strategy string, err error) {
	NotificationsEmitted.WithLabelValues(strategy, resultLabel(err)).Inc()
}

// RecordNotificationDelivery counts a delivery attempt by result.
func RecordNotificationDelivery(result string) {
	NotificationsDelivered.WithLabelValues(result).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
