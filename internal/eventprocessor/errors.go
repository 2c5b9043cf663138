// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package eventprocessor

import "errors"

// ErrBrokerDisabled is returned when the broker is switched off in config.
var ErrBrokerDisabled = errors.New("message broker disabled")

// ErrBrokerUnavailable is returned when the broker cannot be reached or the
// publish circuit breaker is open.
var ErrBrokerUnavailable = errors.New("message broker unavailable")

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("publisher is closed")

// ErrConsumerStopped is returned by Run and Drain after Stop.
var ErrConsumerStopped = errors.New("consumer stopped")

// ErrInvalidConfig is returned when configuration is invalid.
var ErrInvalidConfig = errors.New("invalid configuration")

// IsUnavailable reports whether err means the async path cannot be used
// right now: disabled, unreachable, or already shut down.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrBrokerDisabled) ||
		errors.Is(err, ErrBrokerUnavailable) ||
		errors.Is(err, ErrPublisherClosed) ||
		errors.Is(err, ErrConsumerStopped)
}
