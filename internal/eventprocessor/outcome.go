// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package eventprocessor

import "fmt"

// OutcomeKind classifies what a handler did with one message.
type OutcomeKind int

const (
	// OutcomeApplied means the message took effect. Acked.
	OutcomeApplied OutcomeKind = iota
	// OutcomeRejected means the message can never take effect. Acked.
	OutcomeRejected
	// OutcomeRetry means processing failed for a reason that may pass.
	// Nacked, redelivered up to MaxDeliver times.
	OutcomeRetry
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeApplied:
		return "applied"
	case OutcomeRejected:
		return "rejected"
	case OutcomeRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Outcome is the per-message result of a Handler.
type Outcome struct {
	Kind   OutcomeKind
	Reason string
	Err    error
}

// Applied reports success.
func Applied() Outcome {
	return Outcome{Kind: OutcomeApplied}
}

// Rejected reports a message that must be dropped.
func Rejected(reason string, err error) Outcome {
	return Outcome{Kind: OutcomeRejected, Reason: reason, Err: err}
}

// Retry reports a transient failure.
func Retry(err error) Outcome {
	return Outcome{Kind: OutcomeRetry, Reason: "transient", Err: err}
}

func (o Outcome) String() string {
	if o.Err == nil {
		if o.Reason == "" {
			return o.Kind.String()
		}
		return fmt.Sprintf("%s (%s)", o.Kind, o.Reason)
	}
	return fmt.Sprintf("%s (%s): %v", o.Kind, o.Reason, o.Err)
}
