// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

// Package models defines the domain entities shared across the application.
package models

import "time"

// MovieSituation describes where a movie is in its release lifecycle.
type MovieSituation string

// Movie situation values.
const (
	SituationUpcoming MovieSituation = "upcoming"
	SituationReleased MovieSituation = "released"
	SituationCanceled MovieSituation = "canceled"
)

// Valid reports whether s is a known situation value.
func (s MovieSituation) Valid() bool {
	switch s {
	case SituationUpcoming, SituationReleased, SituationCanceled:
		return true
	}
	return false
}

// Movie is the canonical catalog entity.
//
// VotesQuantity and RatingPercentage form the rating aggregation state:
// RatingPercentage is always the vote-weighted mean of every rating ever
// submitted, and VotesQuantity only increases. RatingVersion guards the
// read-modify-write of those two fields (optimistic concurrency).
type Movie struct {
	ID                string         `json:"id"`
	Title             string         `json:"title"`
	OriginalTitle     *string        `json:"originalTitle,omitempty"`
	Language          *string        `json:"language,omitempty"`
	Synopsis          *string        `json:"synopsis,omitempty"`
	Situation         MovieSituation `json:"situation"`
	Popularity        float64        `json:"popularity"`
	VotesQuantity     int64          `json:"votesQuantity"`
	RatingPercentage  float64        `json:"ratingPercentage"`
	RatingVersion     int64          `json:"-"`
	TrailerURL        *string        `json:"trailerUrl,omitempty"`
	PosterURL         *string        `json:"posterUrl,omitempty"`
	Budget            *int64         `json:"budget,omitempty"`
	Revenue           *int64         `json:"revenue,omitempty"`
	ReleaseDate       *time.Time     `json:"releaseDate,omitempty"`
	DurationInMinutes *int           `json:"durationInMinutes,omitempty"`
	Genres            []string       `json:"genre,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
	DeletedAt         *time.Time     `json:"deletedAt,omitempty"`
}
