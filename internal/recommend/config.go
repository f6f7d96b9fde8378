// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package recommend

import (
	"fmt"
	"time"
)

// Config contains all configuration for the recommendation pipeline.
// A Config is treated as immutable once passed to NewEngine; tests that
// need variants should use Clone.
type Config struct {
	// HalfLifeDays is the recency half-life for rating decay in days.
	// Default: 30.
	HalfLifeDays float64 `json:"half_life_days" koanf:"half_life_days"`

	// DisableDecay forces the decay factor to 1 regardless of event age.
	// Default: false.
	DisableDecay bool `json:"disable_decay" koanf:"disable_decay"`

	// Weights maps star ratings to signed preference weights.
	Weights RatingWeights `json:"weights" koanf:"weights"`

	// MinRatings is the rating count below which a user gets the
	// popularity fallback with progress information.
	// Default: 5.
	MinRatings int `json:"min_ratings" koanf:"min_ratings"`

	// ConfidenceMinimum is the per-genre sample count m at which
	// confidence reaches 0.7; 2m reaches full confidence.
	// Default: 5.
	ConfidenceMinimum int `json:"confidence_minimum" koanf:"confidence_minimum"`

	// ConfidenceBar is the minimum confidence a genre preference needs
	// to participate in content-based scoring.
	// Default: 0.4.
	ConfidenceBar float64 `json:"confidence_bar" koanf:"confidence_bar"`

	// MaxPreferredGenres caps how many liked genres feed the
	// content-based scorer.
	// Default: 4.
	MaxPreferredGenres int `json:"max_preferred_genres" koanf:"max_preferred_genres"`

	// CandidateFactor is the scoring headroom multiplier: the catalog is
	// asked for CandidateFactor * topK candidates.
	// Default: 2.
	CandidateFactor int `json:"candidate_factor" koanf:"candidate_factor"`

	// UnderExposedThreshold is the rating count below which a genre
	// counts as under-exposed for exploration sourcing.
	// Default: 3.
	UnderExposedThreshold int `json:"under_exposed_threshold" koanf:"under_exposed_threshold"`

	// ExplorationRatio is the fraction of result slots given to
	// exploration candidates.
	// Default: 0.2.
	ExplorationRatio float64 `json:"exploration_ratio" koanf:"exploration_ratio"`

	// ExplorationScore is the fixed neutral score carried by exploration
	// candidates, deliberately distinguishable from content-derived scores.
	// Default: 0.5.
	ExplorationScore float64 `json:"exploration_score" koanf:"exploration_score"`

	// ExplorationInterval is the slot spacing for interleaving
	// exploration candidates into the primary list.
	// Default: 3.
	ExplorationInterval int `json:"exploration_interval" koanf:"exploration_interval"`

	// ExplorationPoolFactor sizes the randomized high-quality pool used
	// when no under-exposed genre exists (pool = factor * slots).
	// Default: 5.
	ExplorationPoolFactor int `json:"exploration_pool_factor" koanf:"exploration_pool_factor"`

	// MinGenres is the diversity floor: no genre may occupy more than
	// ceil(len/MinGenres) slots of a result list.
	// Default: 2.
	MinGenres int `json:"min_genres" koanf:"min_genres"`

	// DefaultK is the result size when the caller does not specify one.
	// Default: 10.
	DefaultK int `json:"default_k" koanf:"default_k"`

	// MaxK is the maximum allowed result size.
	// Default: 50.
	MaxK int `json:"max_k" koanf:"max_k"`

	// Seed is the random seed for exploration sampling.
	// If zero, a fixed default seed is used.
	Seed int64 `json:"seed" koanf:"seed"`

	// Cache contains result caching parameters.
	Cache CacheConfig `json:"cache" koanf:"cache"`
}

// RatingWeights is the fixed lookup table mapping star ratings to signed
// preference weights. The mapping is nonlinear and asymmetric: extremes
// carry strong signal, the midpoint carries almost none.
type RatingWeights struct {
	OneStar   float64 `json:"one_star" koanf:"one_star"`
	TwoStar   float64 `json:"two_star" koanf:"two_star"`
	ThreeStar float64 `json:"three_star" koanf:"three_star"`
	FourStar  float64 `json:"four_star" koanf:"four_star"`
	FiveStar  float64 `json:"five_star" koanf:"five_star"`
}

// ForValue returns the weight for a star rating. Values outside 1..5
// contribute weight 0.
func (w RatingWeights) ForValue(value int) float64 {
	switch value {
	case 1:
		return w.OneStar
	case 2:
		return w.TwoStar
	case 3:
		return w.ThreeStar
	case 4:
		return w.FourStar
	case 5:
		return w.FiveStar
	default:
		return 0
	}
}

// CacheConfig contains parameters for the recommendation result cache.
// Entries are keyed on (user, latest rating timestamp, k), so a new rating
// implicitly invalidates all of a user's cached results.
type CacheConfig struct {
	// Enabled controls whether caching is active.
	// Default: true.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// TTL is the cache entry time-to-live.
	// Default: 5m.
	TTL time.Duration `json:"ttl" koanf:"ttl"`

	// MaxEntries is the maximum number of cached results.
	// Default: 10000.
	MaxEntries int `json:"max_entries" koanf:"max_entries"`
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{
		HalfLifeDays: 30,
		DisableDecay: false,
		Weights: RatingWeights{
			OneStar:   -1.0,
			TwoStar:   -0.4,
			ThreeStar: 0.1,
			FourStar:  0.6,
			FiveStar:  1.0,
		},
		MinRatings:            5,
		ConfidenceMinimum:     5,
		ConfidenceBar:         0.4,
		MaxPreferredGenres:    4,
		CandidateFactor:       2,
		UnderExposedThreshold: 3,
		ExplorationRatio:      0.2,
		ExplorationScore:      0.5,
		ExplorationInterval:   3,
		ExplorationPoolFactor: 5,
		MinGenres:             2,
		DefaultK:              10,
		MaxK:                  50,
		Seed:                  42,
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.HalfLifeDays <= 0 && !c.DisableDecay {
		return fmt.Errorf("half_life_days must be positive, got %f", c.HalfLifeDays)
	}
	if c.Weights.FiveStar <= c.Weights.OneStar {
		return fmt.Errorf("weights must be increasing from one_star to five_star")
	}
	if c.MinRatings < 1 {
		return fmt.Errorf("min_ratings must be positive, got %d", c.MinRatings)
	}
	if c.ConfidenceMinimum < 2 {
		return fmt.Errorf("confidence_minimum must be at least 2, got %d", c.ConfidenceMinimum)
	}
	if c.ConfidenceBar < 0 || c.ConfidenceBar > 1 {
		return fmt.Errorf("confidence_bar must be in [0, 1], got %f", c.ConfidenceBar)
	}
	if c.MaxPreferredGenres < 1 {
		return fmt.Errorf("max_preferred_genres must be positive, got %d", c.MaxPreferredGenres)
	}
	if c.CandidateFactor < 1 {
		return fmt.Errorf("candidate_factor must be positive, got %d", c.CandidateFactor)
	}
	if c.ExplorationRatio < 0 || c.ExplorationRatio > 1 {
		return fmt.Errorf("exploration_ratio must be in [0, 1], got %f", c.ExplorationRatio)
	}
	if c.ExplorationInterval < 1 {
		return fmt.Errorf("exploration_interval must be positive, got %d", c.ExplorationInterval)
	}
	if c.ExplorationPoolFactor < 1 {
		return fmt.Errorf("exploration_pool_factor must be positive, got %d", c.ExplorationPoolFactor)
	}
	if c.MinGenres < 1 {
		return fmt.Errorf("min_genres must be positive, got %d", c.MinGenres)
	}
	if c.DefaultK < 1 {
		return fmt.Errorf("default_k must be positive, got %d", c.DefaultK)
	}
	if c.MaxK < c.DefaultK {
		return fmt.Errorf("max_k must be >= default_k, got %d < %d", c.MaxK, c.DefaultK)
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive when cache is enabled, got %v", c.Cache.TTL)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	// Direct field copy - all nested structs contain only value types
	clone := *c
	return &clone
}
