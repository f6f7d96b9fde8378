// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package recommend

// unknownGenreBucket groups candidates with no resolvable genre for
// diversity accounting; the bucket is subject to the same cap.
const unknownGenreBucket = "unknown"

// enforceDiversity caps per-genre representation in a ranked list at
// ceil(len/minGenres), keeping the first-seen candidates of each genre and
// never reordering. The pass repeats with the cap recomputed from the
// shrunken list until the output satisfies the cap relative to its own
// length; each pass only removes, so the loop terminates.
func enforceDiversity(items []Candidate, minGenres int) []Candidate {
	if minGenres <= 0 || len(items) == 0 {
		return items
	}

	current := items
	for {
		limit := (len(current) + minGenres - 1) / minGenres

		counts := make(map[string]int)
		filtered := make([]Candidate, 0, len(current))
		for _, c := range current {
			genre := c.GenreID
			if genre == "" {
				genre = unknownGenreBucket
			}
			if counts[genre] >= limit {
				continue
			}
			counts[genre]++
			filtered = append(filtered, c)
		}

		if len(filtered) == len(current) {
			return filtered
		}
		current = filtered
	}
}
