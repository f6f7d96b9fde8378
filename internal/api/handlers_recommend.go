// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reelrank/reelrank/internal/logging"
	"github.com/reelrank/reelrank/internal/metrics"
)

// GetUserRecommendations handles GET /api/v1/recommendations/user/{userID}.
//
// Query parameters:
//   - k: requested result size (optional; server clamps to its configured
//     default and maximum)
//
// The response envelope always reports which algorithm produced the list
// and whether a fallback was taken; users below the minimum rating count
// additionally get progress toward unlocking personalized results.
func (h *Handler) GetUserRecommendations(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "user ID is required", nil)
		return
	}

	k := getIntParam(r, "k", 0)

	result, err := h.recommender.Recommend(r.Context(), userID, k)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternalError,
			"failed to generate recommendations", err)
		return
	}

	metrics.RecordRecommendation(result.Algorithm, result.Fallback, time.Since(started))
	metrics.RecordCacheAccess(result.Cached)

	logging.Ctx(r.Context()).Debug().
		Str("user_id", sanitizeLogValue(userID)).
		Str("algorithm", result.Algorithm).
		Bool("cached", result.Cached).
		Int("count", len(result.Items)).
		Msg("recommendations served")

	respondSuccess(w, http.StatusOK, result, started, result.Cached)
}

// GetUserProfile handles GET /api/v1/recommendations/user/{userID}/profile.
// It exposes the derived genre-preference profile for inspection.
func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "user ID is required", nil)
		return
	}

	prof, err := h.recommender.GenreProfile(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, codeInternalError,
			"failed to compute genre profile", err)
		return
	}

	respondSuccess(w, http.StatusOK, prof, started, false)
}
