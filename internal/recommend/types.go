// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package recommend

import (
	"context"
	"time"
)

// Note: This package has no dependencies on other internal packages to
// maintain clean separation. The store and model-client interfaces below
// allow integration with the database and HTTP layers without creating
// circular imports.

// RatingEvent is one user's evaluation of one movie, annotated with the
// movie's primary genre.
type RatingEvent struct {
	// UserID is the opaque user identifier.
	UserID string `json:"user_id"`

	// ItemID is the movie identifier.
	ItemID string `json:"item_id"`

	// GenreID is the movie's primary genre. Empty when the movie has no
	// resolvable genre; such events are skipped during aggregation.
	GenreID string `json:"genre_id,omitempty"`

	// GenreName is the display name of the genre.
	GenreName string `json:"genre_name,omitempty"`

	// Value is the star rating, always in 1..5 for persisted events.
	Value int `json:"value"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`
}

// RatingSnapshot captures the value and time of a single rating event.
type RatingSnapshot struct {
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// GenrePreference is a derived, request-scoped aggregate over one user's
// rating events for one genre. It is never persisted.
type GenrePreference struct {
	// GenreID identifies the genre.
	GenreID string `json:"genre_id"`

	// GenreName is the display name of the genre.
	GenreName string `json:"genre_name"`

	// Score is the signed affinity: positive means the user is inferred
	// to like the genre, negative to dislike it.
	Score float64 `json:"score"`

	// Confidence is a [0, 1] multiplier based on sample count.
	Confidence float64 `json:"confidence"`

	// RatingsCount is the number of contributing rating events.
	RatingsCount int `json:"ratings_count"`

	// LastRating is the most recent contributing event.
	LastRating RatingSnapshot `json:"last_rating"`
}

// Profile is the result of preference aggregation for one user.
type Profile struct {
	// HasEnoughData reports whether the user's history meets the
	// configured minimum rating count.
	HasEnoughData bool `json:"has_enough_data"`

	// TotalRatings is the number of rating events in the user's history.
	TotalRatings int `json:"total_ratings"`

	// MinRequired is the configured minimum rating count.
	MinRequired int `json:"min_required"`

	// Preferences is sorted descending by score. Empty when
	// HasEnoughData is false.
	Preferences []GenrePreference `json:"preferences,omitempty"`

	// LatestRatingAt is the timestamp of the newest rating event.
	// Used as part of the recommendation cache key.
	LatestRatingAt time.Time `json:"-"`
}

// Candidate is a scored movie produced by any scoring path.
type Candidate struct {
	// ItemID is the movie identifier.
	ItemID string `json:"item_id"`

	// GenreID is the movie's primary genre, used for diversity accounting.
	GenreID string `json:"genre_id,omitempty"`

	// Score is the recommendation score. Content-derived scores are
	// request-specific; exploration candidates carry a fixed neutral score.
	Score float64 `json:"score"`

	// IsExploration marks candidates injected for catalog diversity.
	IsExploration bool `json:"is_exploration,omitempty"`
}

// Algorithm tags identify which scoring path produced a result.
const (
	// AlgorithmPopular is the popularity fallback.
	AlgorithmPopular = "popular"

	// AlgorithmModel is the external collaborative-filtering model.
	AlgorithmModel = "model"

	// AlgorithmContentBased is the content-based scorer.
	AlgorithmContentBased = "content-based"
)

// Progress reports how far a user is from unlocking personalized
// recommendations.
type Progress struct {
	// Current is the user's rating count.
	Current int `json:"current"`

	// Required is the configured minimum rating count.
	Required int `json:"required"`
}

// Result is an ordered recommendation list plus provenance.
type Result struct {
	// Items is the final ranked candidate list.
	Items []Candidate `json:"items"`

	// Algorithm tags the scoring path that produced Items.
	Algorithm string `json:"algorithm"`

	// Fallback reports whether a lower-confidence strategy was used.
	Fallback bool `json:"fallback"`

	// Progress is set only on the insufficient-history branch.
	Progress *Progress `json:"progress,omitempty"`

	// Cached reports whether the result was served from the cache.
	Cached bool `json:"-"`
}

// CatalogItem is the catalog store's view of a movie: identity, primary
// genre, and quality signals for ranking and tiebreaks.
type CatalogItem struct {
	ItemID        string  `json:"item_id"`
	GenreID       string  `json:"genre_id"`
	AverageRating float64 `json:"average_rating"`
	TotalRatings  int     `json:"total_ratings"`
}

// ModelScore is one entry of the external model's ranked output.
type ModelScore struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
}

// RatingStore provides access to persisted rating events.
type RatingStore interface {
	// FindByUser returns the user's rating events ordered by timestamp
	// descending, each annotated with its movie's primary genre.
	FindByUser(ctx context.Context, userID string) ([]RatingEvent, error)

	// Upsert creates or replaces the rating for (userID, itemID).
	// Last write wins on value; the timestamp is updated in place.
	Upsert(ctx context.Context, userID, itemID string, value int) (RatingEvent, error)
}

// CatalogStore provides read access to the movie catalog.
type CatalogStore interface {
	// FindByGenres returns movies belonging to any of the given genres,
	// excluding excludeIDs, ranked by average rating descending.
	FindByGenres(ctx context.Context, genreIDs, excludeIDs []string, limit int) ([]CatalogItem, error)

	// FindByIDs returns catalog entries for the given movie IDs.
	// Unknown IDs are omitted from the result.
	FindByIDs(ctx context.Context, itemIDs []string) ([]CatalogItem, error)

	// FindPopular returns movies ranked by total ratings descending,
	// then average rating descending.
	FindPopular(ctx context.Context, limit int) ([]CatalogItem, error)
}

// ModelClient calls the external collaborative-filtering model service.
// Implementations must be bounded by a timeout; any failure (timeout,
// non-success response, open circuit breaker) is returned as an error and
// treated identically by the engine.
type ModelClient interface {
	Recommend(ctx context.Context, userID string, topK int) ([]ModelScore, error)
}
