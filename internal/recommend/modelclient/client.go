// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

// Package modelclient implements the HTTP client for the external
// collaborative-filtering model service, wrapped in a circuit breaker so a
// degraded model never drags down the recommendation pipeline. Callers treat
// every failure mode (timeout, non-success response, open circuit) the same
// way: fall back to content-based scoring.
package modelclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/reelrank/reelrank/internal/metrics"
	"github.com/reelrank/reelrank/internal/recommend"
)

// maxResponseBytes bounds how much of a model response is read. The model
// returns at most MaxK scored items, so anything past this is malformed.
const maxResponseBytes = 1 << 20

// Config contains the model service connection settings.
type Config struct {
	// BaseURL is the model service root, e.g. http://model:8000.
	BaseURL string `json:"base_url" koanf:"base_url" validate:"omitempty,url"`

	// Timeout bounds each model request end to end.
	// Default: 2s.
	Timeout time.Duration `json:"timeout" koanf:"timeout"`

	// BreakerMinRequests is the request count below which the breaker
	// never opens.
	// Default: 10.
	BreakerMinRequests uint32 `json:"breaker_min_requests" koanf:"breaker_min_requests"`

	// BreakerFailureRatio is the failure rate at which the breaker opens.
	// Default: 0.6.
	BreakerFailureRatio float64 `json:"breaker_failure_ratio" koanf:"breaker_failure_ratio"`

	// BreakerCooldown is how long the breaker stays open before probing.
	// Default: 30s.
	BreakerCooldown time.Duration `json:"breaker_cooldown" koanf:"breaker_cooldown"`
}

// DefaultConfig returns model client defaults. BaseURL is empty, meaning the
// model integration is disabled until configured.
func DefaultConfig() *Config {
	return &Config{
		Timeout:             2 * time.Second,
		BreakerMinRequests:  10,
		BreakerFailureRatio: 0.6,
		BreakerCooldown:     30 * time.Second,
	}
}

// Client calls the model service over HTTP. It implements
// recommend.ModelClient and is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker[[]recommend.ModelScore]
	logger  zerolog.Logger
}

// recommendRequest is the model service request body.
type recommendRequest struct {
	UserID string `json:"user_id"`
	TopK   int    `json:"top_k"`
}

// recommendResponse is the model service response body.
type recommendResponse struct {
	UserID          string       `json:"user_id"`
	Recommendations []modelEntry `json:"recommendations"`
}

// modelEntry is one scored movie in the model's output.
type modelEntry struct {
	MovieID string  `json:"movieId"`
	Score   float64 `json:"score"`
}

// New creates a model service client. Returns an error when BaseURL is
// empty; callers should treat that as "model disabled" and pass a nil
// client to the engine instead.
func New(cfg *Config, logger zerolog.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("model base URL is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	clientLogger := logger.With().Str("component", "modelclient").Logger()

	cb := gobreaker.NewCircuitBreaker[[]recommend.ModelScore](gobreaker.Settings{
		Name:        "model-service",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerCooldown,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.BreakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.BreakerFailureRatio
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			clientLogger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state transition")
		},
	})

	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: timeout},
		cb:      cb,
		logger:  clientLogger,
	}, nil
}

// Recommend fetches the model's ranked movie scores for a user.
//
// An empty slice with a nil error means the model has no predictions for
// this user (cold start); the engine treats it the same as an error and
// falls back, but it does not count against the circuit breaker.
func (c *Client) Recommend(ctx context.Context, userID string, topK int) ([]recommend.ModelScore, error) {
	scores, err := c.cb.Execute(func() ([]recommend.ModelScore, error) {
		return c.doRecommend(ctx, userID, topK)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordModelRequest("rejected")
			return nil, fmt.Errorf("model service circuit open: %w", err)
		}
		metrics.RecordModelRequest("failure")
		return nil, err
	}

	metrics.RecordModelRequest("success")
	return scores, nil
}

func (c *Client) doRecommend(ctx context.Context, userID string, topK int) ([]recommend.ModelScore, error) {
	body, err := json.Marshal(recommendRequest{UserID: userID, TopK: topK})
	if err != nil {
		return nil, fmt.Errorf("marshal model request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recommend", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("model request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("model service returned status %d", resp.StatusCode)
	}

	var decoded recommendResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode model response: %w", err)
	}

	scores := make([]recommend.ModelScore, 0, len(decoded.Recommendations))
	for _, entry := range decoded.Recommendations {
		scores = append(scores, recommend.ModelScore{
			ItemID: entry.MovieID,
			Score:  entry.Score,
		})
	}
	return scores, nil
}

// Healthy reports whether the model service answers its health endpoint.
// Used by the readiness probe; failures here do not affect the breaker.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	return resp.StatusCode == http.StatusOK
}
