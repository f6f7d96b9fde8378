// ReelRank - Movie Catalog and Personalized Recommendations
// Copyright 2026 ReelRank Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelrank/reelrank

package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MovieDoc is a movie document in the "movies" collection.
//
// GenreID/GenreName denormalize the movie's primary genre; rating aggregates
// (AverageRating, TotalRatings) are maintained by the rating store on every
// rating upsert so popularity queries never need a join.
type MovieDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title         string             `bson:"title" json:"title"`
	GenreID       string             `bson:"genreId" json:"genre_id"`
	GenreName     string             `bson:"genreName" json:"genre_name"`
	Year          int                `bson:"year,omitempty" json:"year,omitempty"`
	AverageRating float64            `bson:"averageRating" json:"average_rating"`
	TotalRatings  int                `bson:"totalRatings" json:"total_ratings"`
	CreatedAt     time.Time          `bson:"createdAt,omitempty" json:"created_at,omitempty"`
}

// GenreDoc is a genre document in the "genres" collection.
type GenreDoc struct {
	ID   primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name string             `bson:"name" json:"name"`
}

// RatingDoc is one user's rating of one movie in the "ratings" collection.
//
// At most one document exists per (userId, movieId) pair; a resubmission
// updates the value and timestamp in place. Genre fields are denormalized
// from the movie at write time so the preference aggregator reads a single
// collection.
type RatingDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"user_id"`
	MovieID   string             `bson:"movieId" json:"movie_id"`
	GenreID   string             `bson:"genreId" json:"genre_id"`
	GenreName string             `bson:"genreName" json:"genre_name"`
	Value     int                `bson:"value" json:"value"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
}
