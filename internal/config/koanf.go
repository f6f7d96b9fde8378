// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order. The
// first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/reelrank/config.yaml",
	"/etc/reelrank/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds the configuration from layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
//
// Precedence: ENV > file > defaults. The result is validated before return.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or empty.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive as strings from environment variables.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for
// known slice fields. Env vars come in as plain strings.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice from YAML or defaults.
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - MONGO_URI -> mongo.uri
//   - MODEL_BASE_URL -> model.base_url
//   - RECOMMEND_HALF_LIFE_DAYS -> recommend.half_life_days
//
// Unknown variables map to the empty string and are ignored, so unrelated
// environment noise never lands in the config tree.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_host":               "server.host",
		"http_port":               "server.port",
		"http_timeout":            "server.timeout",
		"server_shutdown_timeout": "server.shutdown_timeout",
		"environment":             "server.environment",

		// MongoDB mappings
		"mongo_uri":             "mongo.uri",
		"mongo_database":        "mongo.database",
		"mongo_connect_timeout": "mongo.connect_timeout",
		"mongo_query_timeout":   "mongo.query_timeout",
		"mongo_max_pool_size":   "mongo.max_pool_size",

		// Model service mappings
		"model_enabled":               "model.enabled",
		"model_base_url":              "model.base_url",
		"model_timeout":               "model.timeout",
		"model_breaker_min_requests":  "model.breaker_min_requests",
		"model_breaker_failure_ratio": "model.breaker_failure_ratio",
		"model_breaker_cooldown":      "model.breaker_cooldown",

		// Recommendation engine mappings
		"recommend_half_life_days":          "recommend.half_life_days",
		"recommend_disable_decay":           "recommend.disable_decay",
		"recommend_min_ratings":             "recommend.min_ratings",
		"recommend_confidence_minimum":      "recommend.confidence_minimum",
		"recommend_confidence_bar":          "recommend.confidence_bar",
		"recommend_max_preferred_genres":    "recommend.max_preferred_genres",
		"recommend_candidate_factor":        "recommend.candidate_factor",
		"recommend_under_exposed_threshold": "recommend.under_exposed_threshold",
		"recommend_exploration_ratio":       "recommend.exploration_ratio",
		"recommend_exploration_score":       "recommend.exploration_score",
		"recommend_exploration_interval":    "recommend.exploration_interval",
		"recommend_min_genres":              "recommend.min_genres",
		"recommend_default_k":               "recommend.default_k",
		"recommend_max_k":                   "recommend.max_k",
		"recommend_seed":                    "recommend.seed",
		"recommend_cache_enabled":           "recommend.cache.enabled",
		"recommend_cache_ttl":               "recommend.cache.ttl",
		"recommend_cache_max_entries":       "recommend.cache.max_entries",

		// API mappings
		"api_default_page_size": "api.default_page_size",
		"api_max_page_size":     "api.max_page_size",
		"rate_limit_requests":   "api.rate_limit_reqs",
		"rate_limit_window":     "api.rate_limit_window",
		"disable_rate_limit":    "api.rate_limit_disabled",
		"cors_origins":          "api.cors_origins",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
