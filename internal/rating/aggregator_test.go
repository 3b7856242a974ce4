// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package rating

import (
	"errors"
	"testing"
)

func TestApplyWeightedMean(t *testing.T) {
	// 10 votes at 80 plus 10 votes at 100 must land exactly on 90.
	got, err := Apply(State{Votes: 10, Percentage: 80}, Submission{Rating: 100, Votes: 10})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.Votes != 20 {
		t.Errorf("Votes = %d, want 20", got.Votes)
	}
	if got.Percentage != 90 {
		t.Errorf("Percentage = %v, want 90", got.Percentage)
	}
}

func TestApplyFirstVote(t *testing.T) {
	got, err := Apply(State{}, Submission{Rating: 73.5, Votes: 1})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got.Votes != 1 {
		t.Errorf("Votes = %d, want 1", got.Votes)
	}
	if got.Percentage != 73.5 {
		t.Errorf("Percentage = %v, want 73.5", got.Percentage)
	}
}

func TestApplyVotesMonotonic(t *testing.T) {
	tests := []struct {
		name    string
		current State
		sub     Submission
	}{
		{"fresh state", State{}, Submission{Rating: 50, Votes: 1}},
		{"existing votes", State{Votes: 7, Percentage: 42}, Submission{Rating: 88, Votes: 3}},
		{"large batch", State{Votes: 1_000_000, Percentage: 61.2}, Submission{Rating: 0, Votes: 500}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply(tt.current, tt.sub)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if got.Votes != tt.current.Votes+tt.sub.Votes {
				t.Errorf("Votes = %d, want %d", got.Votes, tt.current.Votes+tt.sub.Votes)
			}
			if got.Votes <= tt.current.Votes {
				t.Errorf("Votes did not increase: %d -> %d", tt.current.Votes, got.Votes)
			}
		})
	}
}

func TestApplyRejectsOutOfRangeRating(t *testing.T) {
	for _, r := range []float64{150, -1, 100.0001, -0.0001} {
		_, err := Apply(State{Votes: 1, Percentage: 50}, Submission{Rating: r, Votes: 1})
		if !errors.Is(err, ErrRatingOutOfRange) {
			t.Errorf("Apply(rating=%v) error = %v, want ErrRatingOutOfRange", r, err)
		}
	}
}

func TestApplyAcceptsBoundaryRatings(t *testing.T) {
	for _, r := range []float64{0, 100} {
		if _, err := Apply(State{}, Submission{Rating: r, Votes: 1}); err != nil {
			t.Errorf("Apply(rating=%v) error = %v, want nil", r, err)
		}
	}
}

func TestApplyRejectsInvalidVotes(t *testing.T) {
	for _, v := range []int64{0, -1, -100} {
		_, err := Apply(State{}, Submission{Rating: 50, Votes: v})
		if !errors.Is(err, ErrInvalidVotes) {
			t.Errorf("Apply(votes=%d) error = %v, want ErrInvalidVotes", v, err)
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	current := State{Votes: 4, Percentage: 25}
	_, err := Apply(current, Submission{Rating: 75, Votes: 4})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if current.Votes != 4 || current.Percentage != 25 {
		t.Errorf("input state mutated: %+v", current)
	}
}

func TestApplySequentialSubmissions(t *testing.T) {
	// Folding votes one at a time must equal the mean of all values.
	state := State{}
	values := []float64{60, 70, 80, 90}
	for _, v := range values {
		var err error
		state, err = Apply(state, Submission{Rating: v, Votes: 1})
		if err != nil {
			t.Fatalf("Apply() error = %v", err)
		}
	}
	if state.Votes != 4 {
		t.Errorf("Votes = %d, want 4", state.Votes)
	}
	if state.Percentage != 75 {
		t.Errorf("Percentage = %v, want 75", state.Percentage)
	}
}
