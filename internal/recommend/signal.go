// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package recommend

import (
	"math"
	"time"
)

// hoursPerDay converts elapsed durations to fractional days for decay.
const hoursPerDay = 24.0

// decayFactor computes the recency weight of a rating event:
//
//	0.5 ^ (elapsedDays / halfLifeDays)
//
// The factor is 1 at elapsed time zero, exactly 0.5 after one half-life,
// and always in (0, 1]. Events with timestamps in the future clamp to 1.
// When disabled, the factor is the constant 1.
func decayFactor(eventTime, now time.Time, halfLifeDays float64, disabled bool) float64 {
	if disabled || halfLifeDays <= 0 {
		return 1
	}

	elapsedDays := now.Sub(eventTime).Hours() / hoursPerDay
	if elapsedDays <= 0 {
		return 1
	}

	return math.Pow(0.5, elapsedDays/halfLifeDays)
}

// confidenceForCount maps a genre's sample count to a [0.2, 1.0] confidence
// multiplier, stepped on the configured minimum m:
//
//	n >= 2m      -> 1.0
//	m <= n < 2m  -> 0.7
//	2 <= n < m   -> 0.4
//	n < 2        -> 0.2
//
// Confidence is never zero: a single observation still carries minimal
// weight.
func confidenceForCount(n, minimum int) float64 {
	switch {
	case n >= 2*minimum:
		return 1.0
	case n >= minimum:
		return 0.7
	case n >= 2:
		return 0.4
	default:
		return 0.2
	}
}
