// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

// Package api provides the HTTP surface: chi routing, request validation,
// and the JSON response envelope shared by all endpoints.
package api

import (
	"context"

	"github.com/reelrank/reelrank/internal/config"
	"github.com/reelrank/reelrank/internal/models"
	"github.com/reelrank/reelrank/internal/recommend"
)

// Recommender is the recommendation engine surface the handlers use.
type Recommender interface {
	Recommend(ctx context.Context, userID string, k int) (*recommend.Result, error)
	GenreProfile(ctx context.Context, userID string) (*recommend.Profile, error)
}

// CatalogBrowser serves the catalog browsing endpoints.
type CatalogBrowser interface {
	FindMovies(ctx context.Context, limit int) ([]models.MovieDoc, error)
	ListGenres(ctx context.Context) ([]models.GenreDoc, error)
}

// Pinger reports storage liveness for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds the dependencies for all HTTP handlers.
type Handler struct {
	recommender Recommender
	ratings     recommend.RatingStore
	catalog     CatalogBrowser
	db          Pinger
	apiCfg      config.APIConfig

	// modelHealthy is nil when the model service is disabled.
	modelHealthy func(ctx context.Context) bool
}

// NewHandler creates the handler set. modelHealthy may be nil.
func NewHandler(
	recommender Recommender,
	ratings recommend.RatingStore,
	catalog CatalogBrowser,
	db Pinger,
	apiCfg config.APIConfig,
	modelHealthy func(ctx context.Context) bool,
) *Handler {
	return &Handler{
		recommender:  recommender,
		ratings:      ratings,
		catalog:      catalog,
		db:           db,
		apiCfg:       apiCfg,
		modelHealthy: modelHealthy,
	}
}
