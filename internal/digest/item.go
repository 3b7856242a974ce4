// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

// Package digest renders the daily release-notification document.
//
// A digest aggregates every movie released on a given calendar day into one
// HTML message, sent once per scheduler run to the full recipient list. The
// renderer is a pure function over a snapshot of catalog rows; it performs no
// I/O and no queries.
package digest

import "time"

// Subject is the fixed subject line of the release digest message.
const Subject = "\U0001F3AC LANÇAMENTOS DO DIA"

// Item is the read-only projection of a movie embedded in a digest.
// Optional fields that are absent are omitted entirely from the rendered
// document; only Title is guaranteed to appear.
type Item struct {
	ID               string
	Title            string
	Genres           []string
	Situation        string
	ReleaseDate      *time.Time
	RatingPercentage *float64
	PosterURL        string
}
