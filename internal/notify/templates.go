// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package notify

import "fmt"

// MaturitySubject is the subject of every maturity email.
const MaturitySubject = "Your crop is ready!"

// MaturityMessage builds the email sent when the crop in slot matures.
func MaturityMessage(to, cropType string, slot int) *Message {
	return &Message{
		To:      to,
		Subject: MaturitySubject,
		Body:    fmt.Sprintf("Your %q crop in plot #%d is ready to harvest.", cropType, slot),
	}
}
