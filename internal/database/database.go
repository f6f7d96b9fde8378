// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

// Package database implements MongoDB persistence for the movie catalog and
// rating history. Rating aggregates on movie documents (average, count) are
// maintained at write time so every read path is a single-collection query.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	CollectionMovies  = "movies"
	CollectionRatings = "ratings"
	CollectionGenres  = "genres"
)

// ErrNotFound is returned when a referenced document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrInvalidID is returned when an identifier is not a valid ObjectID hex.
var ErrInvalidID = errors.New("invalid document id")

// Config contains MongoDB connection settings.
type Config struct {
	// URI is the MongoDB connection string.
	// Default: mongodb://localhost:27017.
	URI string `json:"uri" koanf:"uri" validate:"required"`

	// Database is the database name.
	// Default: reelrank.
	Database string `json:"database" koanf:"database" validate:"required"`

	// ConnectTimeout bounds the initial connect and ping.
	// Default: 10s.
	ConnectTimeout time.Duration `json:"connect_timeout" koanf:"connect_timeout"`

	// QueryTimeout bounds individual queries.
	// Default: 5s.
	QueryTimeout time.Duration `json:"query_timeout" koanf:"query_timeout"`

	// MaxPoolSize caps the connection pool.
	// Default: 100.
	MaxPoolSize uint64 `json:"max_pool_size" koanf:"max_pool_size"`
}

// DefaultConfig returns MongoDB defaults for local development.
func DefaultConfig() *Config {
	return &Config{
		URI:            "mongodb://localhost:27017",
		Database:       "reelrank",
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   5 * time.Second,
		MaxPoolSize:    100,
	}
}

// Database wraps the MongoDB client and typed store accessors.
type Database struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    *Config
	logger zerolog.Logger
}

// Connect establishes a MongoDB connection and verifies it with a ping.
func Connect(ctx context.Context, cfg *Config, logger zerolog.Logger) (*Database, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	dbLogger := logger.With().Str("component", "database").Logger()

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetConnectTimeout(cfg.ConnectTimeout)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	dbLogger.Info().Str("database", cfg.Database).Msg("connected to mongodb")

	return &Database{
		client: client,
		db:     client.Database(cfg.Database),
		cfg:    cfg,
		logger: dbLogger,
	}, nil
}

// Close disconnects from MongoDB.
func (d *Database) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// Ping verifies the connection is alive. Used by the readiness probe.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.QueryTimeout)
	defer cancel()
	return d.client.Ping(ctx, readpref.Primary())
}

// Ratings returns the rating store.
func (d *Database) Ratings() *RatingStore {
	return &RatingStore{
		ratings: d.db.Collection(CollectionRatings),
		movies:  d.db.Collection(CollectionMovies),
		timeout: d.cfg.QueryTimeout,
		logger:  d.logger,
	}
}

// Catalog returns the catalog store.
func (d *Database) Catalog() *CatalogStore {
	return &CatalogStore{
		movies:  d.db.Collection(CollectionMovies),
		genres:  d.db.Collection(CollectionGenres),
		timeout: d.cfg.QueryTimeout,
	}
}

// EnsureIndexes creates the indexes the query paths rely on. Safe to call
// on every startup; MongoDB treats existing identical indexes as a no-op.
func (d *Database) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.ConnectTimeout)
	defer cancel()

	ratingIndexes := []mongo.IndexModel{
		{
			// One rating per (user, movie); also serves history lookups.
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "movieId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "movieId", Value: 1}},
		},
	}
	if _, err := d.db.Collection(CollectionRatings).Indexes().CreateMany(ctx, ratingIndexes); err != nil {
		return fmt.Errorf("create rating indexes: %w", err)
	}

	movieIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "genreId", Value: 1}, {Key: "averageRating", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "totalRatings", Value: -1}, {Key: "averageRating", Value: -1}},
		},
	}
	if _, err := d.db.Collection(CollectionMovies).Indexes().CreateMany(ctx, movieIndexes); err != nil {
		return fmt.Errorf("create movie indexes: %w", err)
	}

	return nil
}
