// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package api

import (
	"net/http"
	"time"
)

// GetPopularMovies handles GET /api/v1/movies/popular.
//
// Returns the catalog ranked by total ratings, then average rating. The
// limit query parameter is clamped to the configured page-size bounds.
func (h *Handler) GetPopularMovies(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	limit := clampPageSize(
		getIntParam(r, "limit", 0),
		h.apiCfg.DefaultPageSize,
		h.apiCfg.MaxPageSize,
	)

	movies, err := h.catalog.FindMovies(r.Context(), limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternalError,
			"failed to load movies", err)
		return
	}

	respondSuccess(w, http.StatusOK, movies, started, false)
}

// ListGenres handles GET /api/v1/genres.
func (h *Handler) ListGenres(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	genres, err := h.catalog.ListGenres(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternalError,
			"failed to load genres", err)
		return
	}

	respondSuccess(w, http.StatusOK, genres, started, false)
}
