// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

// Package metrics provides Prometheus instrumentation for ReelRank.
//
// Instrumented concerns:
//   - API endpoint latency and throughput
//   - Recommendation pipeline outcomes (algorithm used, fallbacks)
//   - External model service failures and circuit breaker trips
//   - Recommendation cache efficiency
//   - Rating submissions
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API endpoint metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of in-flight API requests",
		},
	)

	// Recommendation pipeline metrics
	RecommendationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommendations_total",
			Help: "Total recommendation requests by resolved algorithm and fallback status",
		},
		[]string{"algorithm", "fallback"},
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recommendation_pipeline_duration_seconds",
			Help:    "End-to-end duration of the recommendation pipeline in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// External model service metrics
	ModelRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_requests_total",
			Help: "Total requests to the external recommendation model service",
		},
		[]string{"outcome"}, // "success", "error", "timeout", "breaker_open", "empty"
	)

	// Recommendation cache metrics
	CacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_hits_total",
			Help: "Total number of recommendation cache hits",
		},
	)

	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "recommendation_cache_misses_total",
			Help: "Total number of recommendation cache misses",
		},
	)

	// Rating metrics
	RatingSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rating_submissions_total",
			Help: "Total rating submissions by value",
		},
		[]string{"value"},
	)
)

// RecordAPIRequest records metrics for a completed API request.
func RecordAPIRequest(method, path, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	APIRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(active bool) {
	if active {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordRecommendation records the outcome of one recommendation request.
func RecordRecommendation(algorithm string, fallback bool, duration time.Duration) {
	RecommendationsTotal.WithLabelValues(algorithm, strconv.FormatBool(fallback)).Inc()
	RecommendationDuration.Observe(duration.Seconds())
}

// RecordModelRequest records the outcome of one external model service call.
func RecordModelRequest(outcome string) {
	ModelRequestsTotal.WithLabelValues(outcome).Inc()
}

// RecordCacheAccess records a recommendation cache hit or miss.
func RecordCacheAccess(hit bool) {
	if hit {
		CacheHits.Inc()
	} else {
		CacheMisses.Inc()
	}
}

// RecordRatingSubmission records an accepted rating submission.
func RecordRatingSubmission(value int) {
	RatingSubmissionsTotal.WithLabelValues(strconv.Itoa(value)).Inc()
}
