// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

// Package config loads and validates application configuration from layered
// sources: built-in defaults, an optional YAML file, and environment
// variables, with environment taking the highest precedence.
package config

import (
	"fmt"
	"time"

	"github.com/reelrank/reelrank/internal/database"
	"github.com/reelrank/reelrank/internal/recommend"
	"github.com/reelrank/reelrank/internal/recommend/modelclient"
)

// Config is the root application configuration.
type Config struct {
	Server    ServerConfig       `json:"server" koanf:"server"`
	Mongo     database.Config    `json:"mongo" koanf:"mongo"`
	Model     ModelConfig        `json:"model" koanf:"model"`
	Recommend recommend.Config   `json:"recommend" koanf:"recommend"`
	API       APIConfig          `json:"api" koanf:"api"`
	Logging   LoggingConfig      `json:"logging" koanf:"logging"`
}

// LoggingConfig contains log output settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info.
	Level string `json:"level" koanf:"level"`

	// Format is json or console.
	// Default: json.
	Format string `json:"format" koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line in log output.
	// Default: false.
	Caller bool `json:"caller" koanf:"caller"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	// Host is the listen address.
	// Default: 0.0.0.0.
	Host string `json:"host" koanf:"host"`

	// Port is the listen port.
	// Default: 8080.
	Port int `json:"port" koanf:"port" validate:"min=1,max=65535"`

	// Timeout is the per-request read/write timeout.
	// Default: 30s.
	Timeout time.Duration `json:"timeout" koanf:"timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 15s.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" koanf:"shutdown_timeout"`

	// Environment is "development" or "production".
	Environment string `json:"environment" koanf:"environment" validate:"oneof=development production"`
}

// ModelConfig contains the model service settings plus an enable switch.
type ModelConfig struct {
	// Enabled controls whether the external model service is used at all.
	// When false the engine always takes the content-based path.
	// Default: false.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// BaseURL is the model service root, e.g. http://model:8000.
	BaseURL string `json:"base_url" koanf:"base_url"`

	// Timeout bounds each model request end to end.
	// Default: 2s.
	Timeout time.Duration `json:"timeout" koanf:"timeout"`

	// BreakerMinRequests is the request count below which the circuit
	// breaker never opens.
	// Default: 10.
	BreakerMinRequests uint32 `json:"breaker_min_requests" koanf:"breaker_min_requests"`

	// BreakerFailureRatio is the failure rate at which the breaker opens.
	// Default: 0.6.
	BreakerFailureRatio float64 `json:"breaker_failure_ratio" koanf:"breaker_failure_ratio"`

	// BreakerCooldown is how long the breaker stays open before probing.
	// Default: 30s.
	BreakerCooldown time.Duration `json:"breaker_cooldown" koanf:"breaker_cooldown"`
}

// ClientConfig converts the section into the model client's own config.
func (m ModelConfig) ClientConfig() *modelclient.Config {
	return &modelclient.Config{
		BaseURL:             m.BaseURL,
		Timeout:             m.Timeout,
		BreakerMinRequests:  m.BreakerMinRequests,
		BreakerFailureRatio: m.BreakerFailureRatio,
		BreakerCooldown:     m.BreakerCooldown,
	}
}

// APIConfig contains API surface settings.
type APIConfig struct {
	// DefaultPageSize is the page size when the caller does not specify one.
	// Default: 20.
	DefaultPageSize int `json:"default_page_size" koanf:"default_page_size"`

	// MaxPageSize caps requested page sizes.
	// Default: 100.
	MaxPageSize int `json:"max_page_size" koanf:"max_page_size"`

	// RateLimitReqs is the allowed requests per window per client IP.
	// Default: 100.
	RateLimitReqs int `json:"rate_limit_reqs" koanf:"rate_limit_reqs"`

	// RateLimitWindow is the rate limit window.
	// Default: 1m.
	RateLimitWindow time.Duration `json:"rate_limit_window" koanf:"rate_limit_window"`

	// RateLimitDisabled turns off rate limiting.
	// Default: false.
	RateLimitDisabled bool `json:"rate_limit_disabled" koanf:"rate_limit_disabled"`

	// CORSOrigins lists allowed CORS origins.
	// Default: ["*"].
	CORSOrigins []string `json:"cors_origins" koanf:"cors_origins"`
}

// defaultConfig returns a Config with all sensible default values. These are
// applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			Environment:     "development",
		},
		Mongo: *database.DefaultConfig(),
		Model: ModelConfig{
			Enabled:             false,
			Timeout:             2 * time.Second,
			BreakerMinRequests:  10,
			BreakerFailureRatio: 0.6,
			BreakerCooldown:     30 * time.Second,
		},
		Recommend: *recommend.DefaultConfig(),
		API: APIConfig{
			DefaultPageSize:   20,
			MaxPageSize:       100,
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.Environment != "development" && c.Server.Environment != "production" {
		return fmt.Errorf("server.environment must be development or production, got %q", c.Server.Environment)
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("mongo.uri is required")
	}
	if c.Mongo.Database == "" {
		return fmt.Errorf("mongo.database is required")
	}
	if c.Model.Enabled && c.Model.BaseURL == "" {
		return fmt.Errorf("model.base_url is required when the model service is enabled")
	}
	if err := c.Recommend.Validate(); err != nil {
		return fmt.Errorf("recommend: %w", err)
	}
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("api.default_page_size must be positive, got %d", c.API.DefaultPageSize)
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("api.max_page_size must be >= default_page_size, got %d < %d",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	if !c.API.RateLimitDisabled && (c.API.RateLimitReqs < 1 || c.API.RateLimitWindow <= 0) {
		return fmt.Errorf("api rate limit requires positive requests and window")
	}
	return nil
}
