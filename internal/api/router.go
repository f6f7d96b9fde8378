// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelrank/reelrank/internal/config"
	"github.com/reelrank/reelrank/internal/middleware"
)

// Router wires handlers into the chi routing tree.
type Router struct {
	handler *Handler
	apiCfg  config.APIConfig
}

// NewRouter creates a router around the given handler set.
func NewRouter(handler *Handler, apiCfg config.APIConfig) *Router {
	return &Router{
		handler: handler,
		apiCfg:  apiCfg,
	}
}

// Setup builds the HTTP handler tree.
//
// Middleware order matters: request IDs come first so every later log line
// carries one, and rate limiting sits inside the API group so health and
// metrics probes are never throttled by client traffic.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.apiCfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health endpoints stay outside the rate-limited group so orchestrator
	// probes are never rejected.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if !router.apiCfg.RateLimitDisabled {
			r.Use(httprate.LimitByIP(router.apiCfg.RateLimitReqs, router.apiCfg.RateLimitWindow))
		}
		r.Use(middleware.PrometheusMetrics)

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/user/{userID}", router.handler.GetUserRecommendations)
			r.Get("/user/{userID}/profile", router.handler.GetUserProfile)
		})

		r.Post("/ratings", router.handler.SubmitRating)

		r.Get("/movies/popular", router.handler.GetPopularMovies)
		r.Get("/genres", router.handler.ListGenres)
	})

	return r
}
