// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package recommend

import (
	"sort"
	"time"
)

// BuildProfile aggregates a user's rating events into a ranked
// genre-preference profile.
//
// Per genre it accumulates ratingWeight * decay over the contributing
// events, then scores the genre as the decayed average weight multiplied by
// a sample-count confidence. The output is sorted descending by score with
// genre ID as a deterministic tiebreak, so repeated calls over the same
// events produce identical profiles.
//
// Events without a genre association are counted toward TotalRatings but
// skipped during aggregation.
func BuildProfile(cfg *Config, events []RatingEvent, now time.Time) Profile {
	prof := Profile{
		TotalRatings: len(events),
		MinRequired:  cfg.MinRatings,
	}

	for i := range events {
		if events[i].Timestamp.After(prof.LatestRatingAt) {
			prof.LatestRatingAt = events[i].Timestamp
		}
	}

	if len(events) < cfg.MinRatings {
		return prof
	}
	prof.HasEnoughData = true

	type genreAccum struct {
		name        string
		totalWeight float64
		count       int
		last        RatingSnapshot
	}

	byGenre := make(map[string]*genreAccum)
	for i := range events {
		ev := &events[i]
		if ev.GenreID == "" {
			continue
		}

		acc, ok := byGenre[ev.GenreID]
		if !ok {
			acc = &genreAccum{name: ev.GenreName}
			byGenre[ev.GenreID] = acc
		}

		weight := cfg.Weights.ForValue(ev.Value)
		decay := decayFactor(ev.Timestamp, now, cfg.HalfLifeDays, cfg.DisableDecay)

		acc.totalWeight += weight * decay
		acc.count++
		if ev.Timestamp.After(acc.last.Timestamp) {
			acc.last = RatingSnapshot{Value: ev.Value, Timestamp: ev.Timestamp}
		}
	}

	prefs := make([]GenrePreference, 0, len(byGenre))
	for genreID, acc := range byGenre {
		avgWeight := acc.totalWeight / float64(acc.count)
		confidence := confidenceForCount(acc.count, cfg.ConfidenceMinimum)

		prefs = append(prefs, GenrePreference{
			GenreID:      genreID,
			GenreName:    acc.name,
			Score:        avgWeight * confidence,
			Confidence:   confidence,
			RatingsCount: acc.count,
			LastRating:   acc.last,
		})
	}

	sort.Slice(prefs, func(i, j int) bool {
		if prefs[i].Score != prefs[j].Score {
			return prefs[i].Score > prefs[j].Score
		}
		return prefs[i].GenreID < prefs[j].GenreID
	})

	prof.Preferences = prefs
	return prof
}
