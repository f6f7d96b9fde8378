// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/reelrank/reelrank/internal/database"
	"github.com/reelrank/reelrank/internal/logging"
	"github.com/reelrank/reelrank/internal/metrics"
)

// SubmitRatingRequest is the POST /api/v1/ratings request body.
type SubmitRatingRequest struct {
	UserID  string `json:"user_id" validate:"required"`
	MovieID string `json:"movie_id" validate:"required,len=24,hexadecimal"`
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
}

// SubmitRating handles POST /api/v1/ratings.
//
// Submissions are upserts: a second rating for the same (user, movie) pair
// replaces the first, so history length never grows from re-rating. Ratings
// outside 1..5 are rejected before anything is persisted.
func (h *Handler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req SubmitRatingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, codeInvalidRequest, "invalid JSON body", err)
		return
	}

	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	event, err := h.ratings.Upsert(r.Context(), req.UserID, req.MovieID, req.Rating)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			respondError(w, http.StatusNotFound, codeNotFound, "movie not found", nil)
		case errors.Is(err, database.ErrInvalidID):
			respondError(w, http.StatusBadRequest, codeInvalidRequest, "invalid movie ID", nil)
		default:
			respondError(w, http.StatusInternalServerError, codeInternalError,
				"failed to store rating", err)
		}
		return
	}

	metrics.RecordRatingSubmission(req.Rating)

	logging.Ctx(r.Context()).Info().
		Str("user_id", sanitizeLogValue(req.UserID)).
		Str("movie_id", sanitizeLogValue(req.MovieID)).
		Int("rating", req.Rating).
		Msg("rating stored")

	respondSuccess(w, http.StatusCreated, event, started, false)
}
