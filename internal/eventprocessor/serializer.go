// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package eventprocessor

import (
	"fmt"

	"ferm/internal/validation"
	"github.com/goccy/go-json"
)

// Payload is implemented by every message type carried on a garden topic.
type Payload interface {
	Key() string
}

// Encode validates p and marshals it to JSON.
func Encode(p Payload) ([]byte, error) {
	if verr := validation.ValidateStruct(p); verr != nil {
		return nil, fmt.Errorf("validate %T: %w", p, verr)
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", p, err)
	}
	return data, nil
}

// Decode unmarshals data into p and validates the result. Both failures
// mean the message can never be processed.
func Decode(data []byte, p Payload) error {
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal %T: %w", p, err)
	}
	if verr := validation.ValidateStruct(p); verr != nil {
		return fmt.Errorf("validate %T: %w", p, verr)
	}
	return nil
}
