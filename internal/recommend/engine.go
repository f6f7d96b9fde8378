// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

// Package recommend implements the personalized recommendation pipeline:
// time-decayed, confidence-adjusted genre-preference profiles, an external
// collaborative-filtering model with a content-based fallback, controlled
// exploration injection, and per-genre diversity enforcement.
//
// Each request runs the pipeline exactly once per stage and falls through
// on failure:
//
//	insufficient history          -> popularity fallback (with progress)
//	external model unavailable    -> content-based scorer
//	content-based scorer empty    -> popularity fallback
//	scored list -> exploration injection -> diversity enforcement -> truncate
//
// All derived state is request-scoped; the only cross-request state is an
// optional result cache keyed on (user, latest rating timestamp, k), which a
// new rating implicitly invalidates.
package recommend

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Engine coordinates the recommendation pipeline. It is safe for
// concurrent use.
type Engine struct {
	cfg    *Config
	logger zerolog.Logger

	ratings RatingStore
	catalog CatalogStore
	model   ModelClient // nil when the external model is disabled

	// Random source for exploration sampling (protected by rngMu).
	rng   *rand.Rand
	rngMu sync.Mutex

	// Result cache
	cache   map[string]cacheEntry
	cacheMu sync.RWMutex

	// now is swappable for deterministic tests.
	now func() time.Time
}

// cacheEntry holds a cached recommendation result.
type cacheEntry struct {
	result    *Result
	expiresAt time.Time
}

// NewEngine creates a recommendation engine. The model client may be nil,
// in which case every personalized request takes the content-based path.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, logger zerolog.Logger, ratings RatingStore, catalog CatalogStore, model ModelClient) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if ratings == nil {
		return nil, fmt.Errorf("rating store is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("catalog store is required")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = 42
	}

	return &Engine{
		cfg:     cfg,
		logger:  logger.With().Str("component", "recommend").Logger(),
		ratings: ratings,
		catalog: catalog,
		model:   model,
		rng:     rand.New(rand.NewSource(seed)), //nolint:gosec // math/rand is fine for exploration shuffling
		cache:   make(map[string]cacheEntry),
		now:     time.Now,
	}, nil
}

// Recommend generates up to k personalized recommendations for a user.
//
// The returned result is never empty unless the catalog itself is empty;
// scoring failures degrade to lower-confidence strategies rather than
// surfacing as errors. Only store access failures are returned to the
// caller.
func (e *Engine) Recommend(ctx context.Context, userID string, k int) (*Result, error) {
	start := time.Now()

	if k <= 0 {
		k = e.cfg.DefaultK
	}
	if k > e.cfg.MaxK {
		k = e.cfg.MaxK
	}

	logger := e.logger.With().Str("user_id", userID).Int("k", k).Logger()

	events, err := e.ratings.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load rating history: %w", err)
	}

	prof := BuildProfile(e.cfg, events, e.now())

	if !prof.HasEnoughData {
		logger.Debug().
			Int("ratings", prof.TotalRatings).
			Int("required", prof.MinRequired).
			Msg("insufficient history, serving popularity fallback")

		return e.popularFallback(ctx, k, &Progress{
			Current:  prof.TotalRatings,
			Required: prof.MinRequired,
		})
	}

	if cached := e.checkCache(userID, prof.LatestRatingAt, k); cached != nil {
		logger.Debug().Msg("cache hit")
		return cached, nil
	}

	rated := make(map[string]struct{}, len(events))
	for i := range events {
		rated[events[i].ItemID] = struct{}{}
	}

	primary, algorithm := e.primaryCandidates(ctx, userID, prof, rated, k, logger)
	if len(primary) == 0 {
		logger.Debug().Msg("no viable candidates, serving popularity fallback")
		return e.popularFallback(ctx, k, nil)
	}

	final := e.injectExploration(ctx, primary, prof, rated, logger)
	final = enforceDiversity(final, e.cfg.MinGenres)
	if len(final) > k {
		final = final[:k]
	}

	result := &Result{
		Items:     final,
		Algorithm: algorithm,
		Fallback:  algorithm != AlgorithmModel,
	}
	e.storeCache(userID, prof.LatestRatingAt, k, result)

	logger.Debug().
		Str("algorithm", algorithm).
		Int("returned", len(final)).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("recommendation complete")

	return result, nil
}

// GenreProfile computes the user's genre-preference profile from the full
// rating history. Exposed for inspection and debugging.
func (e *Engine) GenreProfile(ctx context.Context, userID string) (*Profile, error) {
	events, err := e.ratings.FindByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load rating history: %w", err)
	}

	prof := BuildProfile(e.cfg, events, e.now())
	return &prof, nil
}

// primaryCandidates runs the model path with content-based fallback and
// returns the scored list plus the algorithm tag. An empty list means both
// paths came up empty.
func (e *Engine) primaryCandidates(ctx context.Context, userID string, prof Profile, rated map[string]struct{}, k int, logger zerolog.Logger) ([]Candidate, string) {
	if e.model != nil {
		scores, err := e.model.Recommend(ctx, userID, k)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("model service unavailable, falling back to content-based scoring")
		case len(scores) == 0:
			logger.Debug().Msg("model returned no results, falling back to content-based scoring")
		default:
			if candidates := e.modelCandidates(ctx, scores, rated, logger); len(candidates) > 0 {
				return candidates, AlgorithmModel
			}
		}
	}

	candidates, err := e.contentBased(ctx, prof, rated, k)
	if err != nil {
		// Treated as NoViableCandidates: the caller degrades to the
		// popularity fallback rather than failing the request.
		logger.Warn().Err(err).Msg("content-based scoring failed")
		return nil, ""
	}
	return candidates, AlgorithmContentBased
}

// modelCandidates annotates the model's ranked output with catalog genres,
// dropping already-rated items while preserving the model's order.
func (e *Engine) modelCandidates(ctx context.Context, scores []ModelScore, rated map[string]struct{}, logger zerolog.Logger) []Candidate {
	ids := make([]string, 0, len(scores))
	for _, s := range scores {
		ids = append(ids, s.ItemID)
	}

	genres := make(map[string]string, len(ids))
	items, err := e.catalog.FindByIDs(ctx, ids)
	if err != nil {
		// Genre annotation is only needed for diversity accounting;
		// missing genres land in the unknown bucket.
		logger.Warn().Err(err).Msg("catalog lookup for model results failed")
	} else {
		for _, item := range items {
			genres[item.ItemID] = item.GenreID
		}
	}

	candidates := make([]Candidate, 0, len(scores))
	for _, s := range scores {
		if _, ok := rated[s.ItemID]; ok {
			continue
		}
		candidates = append(candidates, Candidate{
			ItemID:  s.ItemID,
			GenreID: genres[s.ItemID],
			Score:   s.Score,
		})
	}
	return candidates
}

// popularFallback serves the catalog's popularity ranking. The progress
// argument is non-nil only on the insufficient-history branch.
func (e *Engine) popularFallback(ctx context.Context, k int, progress *Progress) (*Result, error) {
	items, err := e.catalog.FindPopular(ctx, k)
	if err != nil {
		return nil, fmt.Errorf("popularity fallback: %w", err)
	}

	candidates := make([]Candidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, Candidate{
			ItemID:  item.ItemID,
			GenreID: item.GenreID,
			Score:   item.AverageRating / maxStarRating,
		})
	}

	return &Result{
		Items:     candidates,
		Algorithm: AlgorithmPopular,
		Fallback:  true,
		Progress:  progress,
	}, nil
}

// cacheKey builds the result cache key. Keying on the latest rating
// timestamp makes every new rating an implicit invalidation.
func cacheKey(userID string, latestRating time.Time, k int) string {
	return fmt.Sprintf("%s|%d|%d", userID, latestRating.UnixNano(), k)
}

// checkCache returns a copy-tagged cached result, or nil on miss.
func (e *Engine) checkCache(userID string, latestRating time.Time, k int) *Result {
	if !e.cfg.Cache.Enabled {
		return nil
	}

	key := cacheKey(userID, latestRating, k)

	e.cacheMu.RLock()
	entry, ok := e.cache[key]
	e.cacheMu.RUnlock()

	if !ok || e.now().After(entry.expiresAt) {
		return nil
	}

	// Copy the items so callers can never mutate the cached slice.
	cached := *entry.result
	cached.Items = append([]Candidate(nil), entry.result.Items...)
	cached.Cached = true
	return &cached
}

// storeCache caches a result, evicting expired entries when full.
func (e *Engine) storeCache(userID string, latestRating time.Time, k int, result *Result) {
	if !e.cfg.Cache.Enabled {
		return
	}

	key := cacheKey(userID, latestRating, k)
	now := e.now()

	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	if len(e.cache) >= e.cfg.Cache.MaxEntries {
		for k, entry := range e.cache {
			if now.After(entry.expiresAt) {
				delete(e.cache, k)
			}
		}
		if len(e.cache) >= e.cfg.Cache.MaxEntries {
			return
		}
	}

	e.cache[key] = cacheEntry{
		result:    result,
		expiresAt: now.Add(e.cfg.Cache.TTL),
	}
}
