// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

// Command server runs the ReelRank HTTP API.
//
// Startup order: configuration, logging, MongoDB, optional model client,
// recommendation engine, HTTP server. Shutdown reverses it: the HTTP server
// drains in-flight requests before the database connection closes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/reelrank/reelrank/internal/api"
	"github.com/reelrank/reelrank/internal/config"
	"github.com/reelrank/reelrank/internal/database"
	"github.com/reelrank/reelrank/internal/logging"
	"github.com/reelrank/reelrank/internal/recommend"
	"github.com/reelrank/reelrank/internal/recommend/modelclient"
)

func main() {
	if err := run(); err != nil {
		logging.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logger := logging.Logger()

	logger.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Bool("model_enabled", cfg.Model.Enabled).
		Msg("starting reelrank server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, &cfg.Mongo, logger)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := db.Close(closeCtx); err != nil {
			logger.Error().Err(err).Msg("database close failed")
		}
	}()

	if err := db.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	ratings := db.Ratings()
	catalog := db.Catalog()

	// A disabled model must pass an untyped nil to the engine so the model
	// path is skipped entirely.
	var model recommend.ModelClient
	var modelHealthy func(ctx context.Context) bool
	if cfg.Model.Enabled {
		client, err := modelclient.New(cfg.Model.ClientConfig(), logger)
		if err != nil {
			return fmt.Errorf("create model client: %w", err)
		}
		model = client
		modelHealthy = client.Healthy
	}

	engine, err := recommend.NewEngine(&cfg.Recommend, logger, ratings, catalog, model)
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	handler := api.NewHandler(engine, ratings, catalog, db, cfg.API, modelHealthy)
	router := api.NewRouter(handler, cfg.API)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}
