// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package garden

import (
	"time"

	"ferm/internal/database"
)

// HasMatured reports whether a crop planted at plantedAt is ready at now.
func HasMatured(plantedAt, now time.Time, growth time.Duration) bool {
	return now.Sub(plantedAt) >= growth
}

// MaturityCutoff is the latest planting time that counts as matured at now.
func MaturityCutoff(now time.Time, growth time.Duration) time.Time {
	return now.Add(-growth)
}

// PlotSnapshot is the read model of one plot.
type PlotSnapshot struct {
	Slot      int        `json:"slot"`
	CropType  *string    `json:"cropType"`
	PlantedAt *time.Time `json:"plantedAt"`
	Matured   bool       `json:"matured"`
	Harvested bool       `json:"harvested"`
}

// Snapshot derives the read model of p at now.
func Snapshot(p *database.Plot, now time.Time, growth time.Duration) PlotSnapshot {
	snap := PlotSnapshot{Slot: p.Slot, Harvested: p.Harvested}
	if p.CropType.Valid && !p.Harvested {
		crop := p.CropType.String
		snap.CropType = &crop
	}
	if planted, ok := p.PlantedTime(); ok {
		planted = planted.UTC()
		snap.PlantedAt = &planted
		snap.Matured = !p.Harvested && HasMatured(planted, now, growth)
	}
	return snap
}

// hasActiveCrop is the plant precondition inverted: something is in the
// ground and has not been harvested.
func hasActiveCrop(p *database.Plot) bool {
	return p.CropType.Valid && !p.Harvested
}
