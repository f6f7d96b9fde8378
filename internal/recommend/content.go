// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package recommend

import (
	"context"
	"sort"
)

// Content-based score blend: personal affinity dominates, item quality
// breaks near-ties.
const (
	contentAffinityWeight = 0.7
	contentQualityWeight  = 0.3
)

// maxStarRating normalizes average ratings into [0, 1].
const maxStarRating = 5.0

// contentBased produces a ranked candidate list from the user's genre
// preferences when the external model is unavailable.
//
// Only genres with confidence at or above the configured bar and a positive
// score participate, capped to the top MaxPreferredGenres. Returns an empty
// list when no genre clears the bar; the caller falls back further.
func (e *Engine) contentBased(ctx context.Context, prof Profile, rated map[string]struct{}, topK int) ([]Candidate, error) {
	liked := make([]GenrePreference, 0, e.cfg.MaxPreferredGenres)
	for _, pref := range prof.Preferences {
		if pref.Confidence < e.cfg.ConfidenceBar || pref.Score <= 0 {
			continue
		}
		liked = append(liked, pref)
		if len(liked) == e.cfg.MaxPreferredGenres {
			break
		}
	}

	if len(liked) == 0 {
		return nil, nil
	}

	genreIDs := make([]string, len(liked))
	prefByGenre := make(map[string]GenrePreference, len(liked))
	for i, pref := range liked {
		genreIDs[i] = pref.GenreID
		prefByGenre[pref.GenreID] = pref
	}

	excludeIDs := make([]string, 0, len(rated))
	for id := range rated {
		excludeIDs = append(excludeIDs, id)
	}
	sort.Strings(excludeIDs)

	items, err := e.catalog.FindByGenres(ctx, genreIDs, excludeIDs, e.cfg.CandidateFactor*topK)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(items))
	quality := make(map[string]float64, len(items))
	for _, item := range items {
		pref, ok := prefByGenre[item.GenreID]
		if !ok {
			continue
		}

		affinity := pref.Score * pref.Confidence
		itemQuality := item.AverageRating / maxStarRating
		quality[item.ItemID] = item.AverageRating

		candidates = append(candidates, Candidate{
			ItemID:  item.ItemID,
			GenreID: item.GenreID,
			Score:   contentAffinityWeight*affinity + contentQualityWeight*itemQuality,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return quality[candidates[i].ItemID] > quality[candidates[j].ItemID]
	})

	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	return candidates, nil
}
