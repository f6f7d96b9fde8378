// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package recommend

import (
	"context"
	"math"
	"slices"

	"github.com/rs/zerolog"
)

// injectExploration interleaves exploration candidates into a primary
// ranked list, preserving its length and the relative order of surviving
// primary candidates.
//
// Exploration candidates come preferentially from unrated movies in
// under-exposed genres (fewer than UnderExposedThreshold contributing
// ratings); when every genre is well exposed they are drawn from a
// randomized high-quality pool instead, so repeated calls don't surface the
// identical exploration set. Each carries the fixed neutral score and the
// IsExploration flag.
//
// The last slots of the primary list make room; insertions land at slots
// ExplorationInterval, 2*ExplorationInterval, ... clamped to the list.
// Exploration failures are logged and degrade to the unmodified primary
// list; they never fail the request.
func (e *Engine) injectExploration(ctx context.Context, primary []Candidate, prof Profile, rated map[string]struct{}, logger zerolog.Logger) []Candidate {
	n := len(primary)
	if n == 0 || e.cfg.ExplorationRatio <= 0 {
		return primary
	}

	slots := int(math.Ceil(float64(n) * e.cfg.ExplorationRatio))
	if slots >= n {
		slots = n - 1
	}
	if slots <= 0 {
		return primary
	}

	exclude := make(map[string]struct{}, len(rated)+n)
	for id := range rated {
		exclude[id] = struct{}{}
	}
	for _, c := range primary {
		exclude[c.ItemID] = struct{}{}
	}

	pool := e.explorationPool(ctx, prof, exclude, slots, logger)
	if len(pool) == 0 {
		return primary
	}
	if len(pool) > slots {
		pool = pool[:slots]
	}

	result := slices.Clone(primary[:n-len(pool)])
	for i, c := range pool {
		pos := e.cfg.ExplorationInterval * (i + 1)
		if pos > len(result) {
			pos = len(result)
		}
		result = slices.Insert(result, pos, c)
	}

	if len(result) > n {
		result = result[:n]
	}
	return result
}

// explorationPool sources up to want exploration candidates, excluding the
// given item IDs.
func (e *Engine) explorationPool(ctx context.Context, prof Profile, exclude map[string]struct{}, want int, logger zerolog.Logger) []Candidate {
	var underExposed []string
	for _, pref := range prof.Preferences {
		if pref.RatingsCount < e.cfg.UnderExposedThreshold {
			underExposed = append(underExposed, pref.GenreID)
		}
	}

	var items []CatalogItem
	var err error

	if len(underExposed) > 0 {
		excludeIDs := make([]string, 0, len(exclude))
		for id := range exclude {
			excludeIDs = append(excludeIDs, id)
		}
		items, err = e.catalog.FindByGenres(ctx, underExposed, excludeIDs, want)
	} else {
		items, err = e.randomizedQualityPool(ctx, exclude, want)
	}

	if err != nil {
		logger.Warn().Err(err).Msg("exploration sourcing failed, skipping injection")
		return nil
	}

	candidates := make([]Candidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, Candidate{
			ItemID:        item.ItemID,
			GenreID:       item.GenreID,
			Score:         e.cfg.ExplorationScore,
			IsExploration: true,
		})
	}
	return candidates
}

// randomizedQualityPool shuffles a popularity-ranked pool and returns the
// first want unexcluded items. The shuffle is deliberately nondeterministic
// across requests (seeded once per engine) so the exploration set varies.
func (e *Engine) randomizedQualityPool(ctx context.Context, exclude map[string]struct{}, want int) ([]CatalogItem, error) {
	pool, err := e.catalog.FindPopular(ctx, want*e.cfg.ExplorationPoolFactor)
	if err != nil {
		return nil, err
	}

	filtered := make([]CatalogItem, 0, len(pool))
	for _, item := range pool {
		if _, ok := exclude[item.ItemID]; ok {
			continue
		}
		filtered = append(filtered, item)
	}

	e.rngMu.Lock()
	e.rng.Shuffle(len(filtered), func(i, j int) {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	})
	e.rngMu.Unlock()

	if len(filtered) > want {
		filtered = filtered[:want]
	}
	return filtered, nil
}
