// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package garden

import (
	"sort"
	"strings"
)

// CropType names something that can be planted.
type CropType string

// Tier groups crops by how the shop unlocks them.
type Tier int

const (
	TierBase Tier = iota + 1
	TierAdvanced
)

func (t Tier) String() string {
	switch t {
	case TierBase:
		return "base"
	case TierAdvanced:
		return "advanced"
	default:
		return "unknown"
	}
}

const (
	Radish   CropType = "radish"
	Carrot   CropType = "carrot"
	Cabbage  CropType = "cabbage"
	Mango    CropType = "mango"
	Potato   CropType = "potato"
	Eggplant CropType = "eggplant"
)

// CropTag is the validator rule that accepts exactly the catalog.
const CropTag = "oneof=radish carrot cabbage mango potato eggplant"

var catalog = map[CropType]Tier{
	Radish:   TierBase,
	Carrot:   TierBase,
	Cabbage:  TierBase,
	Mango:    TierAdvanced,
	Potato:   TierAdvanced,
	Eggplant: TierAdvanced,
}

// ParseCropType normalizes s and checks it against the catalog.
func ParseCropType(s string) (CropType, error) {
	c := CropType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := catalog[c]; !ok {
		return "", invalid("type", "unknown crop type %q", s)
	}
	return c, nil
}

// Tier returns the crop's tier, or 0 for crops outside the catalog.
func (c CropType) Tier() Tier {
	return catalog[c]
}

// Valid reports whether c is in the catalog.
func (c CropType) Valid() bool {
	_, ok := catalog[c]
	return ok
}

func (c CropType) String() string { return string(c) }

// CropTypes lists the catalog, base tier first, then by name.
func CropTypes() []CropType {
	out := make([]CropType, 0, len(catalog))
	for c := range catalog {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Tier() != out[j].Tier() {
			return out[i].Tier() < out[j].Tier()
		}
		return out[i] < out[j]
	})
	return out
}
