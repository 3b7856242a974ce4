// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

// Package rating implements the incremental weighted-average rating
// aggregation used by the movie catalog.
//
// The aggregation is a pure computation over (vote count, mean) pairs: the
// result after applying a submission is the exact vote-weighted mean of every
// rating ever submitted, without retaining individual votes. Persistence of
// the resulting state is the caller's responsibility.
package rating

import "errors"

// Validation errors returned by Apply.
var (
	// ErrRatingOutOfRange indicates a submitted rating outside [0, 100].
	ErrRatingOutOfRange = errors.New("rating must be between 0 and 100")

	// ErrInvalidVotes indicates a submitted vote count below 1.
	ErrInvalidVotes = errors.New("votes must be at least 1")
)

// State is the running aggregation state of a single movie.
type State struct {
	// Votes is the running total of votes cast. Never decreases.
	Votes int64

	// Percentage is the vote-weighted mean rating in [0, 100].
	Percentage float64
}

// Submission is a new batch of votes to fold into the aggregate.
type Submission struct {
	// Rating is the rating value in [0, 100].
	Rating float64

	// Votes is the weight of this submission, at least 1.
	Votes int64
}

// Apply folds a submission into the current state and returns the updated
// state. The incremental weighted-average formula keeps the result equal to
// the mean over all votes to date; with zero current votes the first term
// vanishes and the result is exactly the submitted rating, so no special
// case is needed.
//
// The order of operations is fixed: total votes first, then the weighted
// sum, then the division. Callers depend on bit-identical results.
func Apply(current State, sub Submission) (State, error) {
	if sub.Rating < 0 || sub.Rating > 100 {
		return State{}, ErrRatingOutOfRange
	}
	if sub.Votes < 1 {
		return State{}, ErrInvalidVotes
	}

	totalVotes := current.Votes + sub.Votes
	totalWeighted := current.Percentage*float64(current.Votes) + sub.Rating*float64(sub.Votes)
	newRating := totalWeighted / float64(totalVotes)

	return State{Votes: totalVotes, Percentage: newRating}, nil
}
