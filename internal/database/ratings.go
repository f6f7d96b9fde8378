// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/reelrank/reelrank/internal/models"
	"github.com/reelrank/reelrank/internal/recommend"
)

// RatingStore persists rating events in the "ratings" collection and keeps
// the denormalized rating aggregates on movie documents current.
type RatingStore struct {
	ratings *mongo.Collection
	movies  *mongo.Collection
	timeout time.Duration
	logger  zerolog.Logger
}

// FindByUser returns the user's rating events ordered newest first. Genre
// fields come from the rating documents themselves; they were denormalized
// from the movie at write time.
func (s *RatingStore) FindByUser(ctx context.Context, userID string) ([]recommend.RatingEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})

	cursor, err := s.ratings.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find ratings for user %s: %w", userID, err)
	}
	defer cursor.Close(ctx)

	var docs []models.RatingDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode ratings for user %s: %w", userID, err)
	}

	events := make([]recommend.RatingEvent, 0, len(docs))
	for _, doc := range docs {
		events = append(events, recommend.RatingEvent{
			UserID:    doc.UserID,
			ItemID:    doc.MovieID,
			GenreID:   doc.GenreID,
			GenreName: doc.GenreName,
			Value:     doc.Value,
			Timestamp: doc.Timestamp,
		})
	}
	return events, nil
}

// Upsert creates or replaces the rating for (userID, itemID). Last write
// wins: a resubmission updates the value and timestamp in place rather than
// adding a second event. The movie's averageRating and totalRatings are
// recomputed afterwards.
//
// Returns ErrNotFound when the movie does not exist and ErrInvalidID when
// itemID is not a valid ObjectID hex.
func (s *RatingStore) Upsert(ctx context.Context, userID, itemID string, value int) (recommend.RatingEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	movieID, err := primitive.ObjectIDFromHex(itemID)
	if err != nil {
		return recommend.RatingEvent{}, fmt.Errorf("%w: %s", ErrInvalidID, itemID)
	}

	// Genre fields are denormalized onto the rating document so the
	// preference aggregator reads a single collection.
	var movie models.MovieDoc
	if err := s.movies.FindOne(ctx, bson.M{"_id": movieID}).Decode(&movie); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return recommend.RatingEvent{}, fmt.Errorf("movie %s: %w", itemID, ErrNotFound)
		}
		return recommend.RatingEvent{}, fmt.Errorf("load movie %s: %w", itemID, err)
	}

	now := time.Now().UTC()
	filter := bson.M{"userId": userID, "movieId": itemID}
	update := bson.M{
		"$set": bson.M{
			"value":     value,
			"timestamp": now,
			"genreId":   movie.GenreID,
			"genreName": movie.GenreName,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc models.RatingDoc
	if err := s.ratings.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return recommend.RatingEvent{}, fmt.Errorf("upsert rating: %w", err)
	}

	if err := s.refreshMovieAggregates(ctx, itemID, movieID); err != nil {
		// The rating is persisted; stale aggregates self-correct on the
		// movie's next rating.
		s.logger.Warn().Err(err).Str("movie_id", itemID).Msg("failed to refresh movie rating aggregates")
	}

	return recommend.RatingEvent{
		UserID:    doc.UserID,
		ItemID:    doc.MovieID,
		GenreID:   doc.GenreID,
		GenreName: doc.GenreName,
		Value:     doc.Value,
		Timestamp: doc.Timestamp,
	}, nil
}

// refreshMovieAggregates recomputes averageRating and totalRatings for one
// movie from its rating documents.
func (s *RatingStore) refreshMovieAggregates(ctx context.Context, itemID string, movieID primitive.ObjectID) error {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"movieId": itemID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avg":   bson.M{"$avg": "$value"},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := s.ratings.Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("aggregate ratings: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Avg   float64 `bson:"avg"`
		Count int     `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return fmt.Errorf("decode aggregates: %w", err)
	}

	var avg float64
	var count int
	if len(results) > 0 {
		avg = results[0].Avg
		count = results[0].Count
	}

	_, err = s.movies.UpdateOne(ctx, bson.M{"_id": movieID}, bson.M{
		"$set": bson.M{
			"averageRating": avg,
			"totalRatings":  count,
		},
	})
	if err != nil {
		return fmt.Errorf("update movie aggregates: %w", err)
	}
	return nil
}
