// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/reelrank/reelrank/internal/models"
	"github.com/reelrank/reelrank/internal/recommend"
)

// CatalogStore serves read access to the "movies" and "genres" collections.
type CatalogStore struct {
	movies  *mongo.Collection
	genres  *mongo.Collection
	timeout time.Duration
}

// FindByGenres returns movies in any of the given genres, excluding
// excludeIDs, ranked by average rating descending.
func (s *CatalogStore) FindByGenres(ctx context.Context, genreIDs, excludeIDs []string, limit int) ([]recommend.CatalogItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	filter := bson.M{"genreId": bson.M{"$in": genreIDs}}
	if len(excludeIDs) > 0 {
		objIDs := make([]primitive.ObjectID, 0, len(excludeIDs))
		for _, id := range excludeIDs {
			objID, err := primitive.ObjectIDFromHex(id)
			if err != nil {
				// Malformed exclusions can't match anything anyway.
				continue
			}
			objIDs = append(objIDs, objID)
		}
		filter["_id"] = bson.M{"$nin": objIDs}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "averageRating", Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	return s.findItems(ctx, filter, opts)
}

// FindByIDs returns catalog entries for the given movie IDs. Unknown and
// malformed IDs are omitted.
func (s *CatalogStore) FindByIDs(ctx context.Context, itemIDs []string) ([]recommend.CatalogItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	objIDs := make([]primitive.ObjectID, 0, len(itemIDs))
	for _, id := range itemIDs {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		objIDs = append(objIDs, objID)
	}
	if len(objIDs) == 0 {
		return nil, nil
	}

	return s.findItems(ctx, bson.M{"_id": bson.M{"$in": objIDs}}, options.Find())
}

// FindPopular returns movies ranked by total ratings descending, then
// average rating descending.
func (s *CatalogStore) FindPopular(ctx context.Context, limit int) ([]recommend.CatalogItem, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{
			{Key: "totalRatings", Value: -1},
			{Key: "averageRating", Value: -1},
			{Key: "_id", Value: 1},
		}).
		SetLimit(int64(limit))

	return s.findItems(ctx, bson.M{}, opts)
}

// FindMovies returns full movie documents ranked by popularity, for the
// catalog browsing endpoint.
func (s *CatalogStore) FindMovies(ctx context.Context, limit int) ([]models.MovieDoc, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{
			{Key: "totalRatings", Value: -1},
			{Key: "averageRating", Value: -1},
			{Key: "_id", Value: 1},
		}).
		SetLimit(int64(limit))

	cursor, err := s.movies.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find movies: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.MovieDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode movies: %w", err)
	}
	return docs, nil
}

// ListGenres returns all genres.
func (s *CatalogStore) ListGenres(ctx context.Context) ([]models.GenreDoc, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})

	cursor, err := s.genres.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find genres: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.GenreDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode genres: %w", err)
	}
	return docs, nil
}

// findItems runs a movie query and maps documents to catalog items.
func (s *CatalogStore) findItems(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]recommend.CatalogItem, error) {
	cursor, err := s.movies.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find movies: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []models.MovieDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode movies: %w", err)
	}

	items := make([]recommend.CatalogItem, 0, len(docs))
	for _, doc := range docs {
		items = append(items, recommend.CatalogItem{
			ItemID:        doc.ID.Hex(),
			GenreID:       doc.GenreID,
			AverageRating: doc.AverageRating,
			TotalRatings:  doc.TotalRatings,
		})
	}
	return items, nil
}
