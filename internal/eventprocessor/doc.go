// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

// Package eventprocessor is the message broker client behind the garden's
// asynchronous paths. It uses Watermill over NATS JetStream.
//
// Two topics live in one stream:
//
//	garden_plant    PlantCommand          API -> planting consumer
//	garden_matured  MaturityNotification  scanner -> notification consumer
//
// # Lifecycle
//
// Broker.Connect optionally starts an embedded JetStream server, dials it
// with a bounded number of attempts, provisions the stream and opens the
// publisher. Every Consumer opens its own subscriber connection so the
// planting and notification consumers fail and reconnect independently.
// Close stops the consumers first, then the publisher, the connection and
// finally the embedded server.
//
// # Delivery
//
// Messages are keyed by requestId, which is also sent as Nats-Msg-Id so
// JetStream drops a duplicate publish inside the dedup window. Consumers
// are durable queue subscriptions named after their consumer group; a
// second process with the same group shares the work instead of seeing
// every message.
//
// A Handler returns an Outcome rather than an error:
//
//	Applied   the message took effect                -> Ack
//	Rejected  the message can never take effect      -> Ack, logged
//	Retry     infrastructure failed, try again later -> Nack
//
// Redelivery after Retry is bounded by MaxDeliver. A panic inside a
// handler is recovered and treated as Rejected, so one poison message
// cannot stop the loop.
//
// # Availability
//
// Publish runs through a gobreaker circuit breaker. While the breaker is
// open, or the connection is down, Available reports false and Publish
// fails fast with ErrBrokerUnavailable.
package eventprocessor
