// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/marqueehq/marquee/internal/database"
	"github.com/marqueehq/marquee/internal/models"
	"github.com/marqueehq/marquee/internal/validation"
)

// maxBodyBytes caps request bodies. Catalog payloads are small; anything
// above 1 MiB is malformed or hostile.
const maxBodyBytes = 1 << 20

// releaseDateLayout is the wire format for release date filters.
const releaseDateLayout = "2006-01-02"

// movieCreateRequest is the payload for POST /movies.
type movieCreateRequest struct {
	Title             string     `json:"title" validate:"required,max=255"`
	OriginalTitle     *string    `json:"originalTitle" validate:"omitempty,max=255"`
	Language          *string    `json:"language" validate:"omitempty,max=64"`
	Synopsis          *string    `json:"synopsis"`
	Situation         *string    `json:"situation" validate:"omitempty,situation"`
	Popularity        *float64   `json:"popularity" validate:"omitempty,gte=0"`
	TrailerURL        *string    `json:"trailerUrl" validate:"omitempty,url"`
	PosterURL         *string    `json:"posterUrl" validate:"omitempty,url"`
	Budget            *int64     `json:"budget" validate:"omitempty,gte=0"`
	Revenue           *int64     `json:"revenue" validate:"omitempty,gte=0"`
	ReleaseDate       *time.Time `json:"releaseDate"`
	DurationInMinutes *int       `json:"durationInMinutes" validate:"omitempty,gte=1"`
	Genres            []string   `json:"genre" validate:"omitempty,dive,max=64"`
}

// movieUpdateRequest is the payload for PATCH /movies/{id}. Absent
// fields keep their stored value.
type movieUpdateRequest struct {
	Title             *string    `json:"title" validate:"omitempty,min=1,max=255"`
	OriginalTitle     *string    `json:"originalTitle" validate:"omitempty,max=255"`
	Language          *string    `json:"language" validate:"omitempty,max=64"`
	Synopsis          *string    `json:"synopsis"`
	Situation         *string    `json:"situation" validate:"omitempty,situation"`
	Popularity        *float64   `json:"popularity" validate:"omitempty,gte=0"`
	TrailerURL        *string    `json:"trailerUrl" validate:"omitempty,url"`
	PosterURL         *string    `json:"posterUrl" validate:"omitempty,url"`
	Budget            *int64     `json:"budget" validate:"omitempty,gte=0"`
	Revenue           *int64     `json:"revenue" validate:"omitempty,gte=0"`
	ReleaseDate       *time.Time `json:"releaseDate"`
	DurationInMinutes *int       `json:"durationInMinutes" validate:"omitempty,gte=1"`
	Genres            []string   `json:"genre" validate:"omitempty,dive,max=64"`
}

// ratingRequest is the payload for PATCH /movies/{id}/rating. Votes
// defaults to a single vote when omitted.
type ratingRequest struct {
	Rating        float64 `json:"rating" validate:"gte=0,lte=100"`
	VotesQuantity *int64  `json:"votesQuantity" validate:"omitempty,gte=1"`
}

// userCreateRequest is the payload for POST /users. Registration is
// public and never accepts a role; every account is created as a
// regular user. Admins exist only through the configured bootstrap.
type userCreateRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// loginRequest is the payload for POST /auth/login.
type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// decodeAndValidate decodes the JSON body into dst and runs struct
// validation. On failure it writes the error response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	rw := NewResponseWriter(w, r)

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			rw.BadRequest("Request body is required")
			return false
		}
		rw.BadRequest("Invalid JSON body: " + err.Error())
		return false
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		rw.ValidationError("Request validation failed", verr.ToAPIError())
		return false
	}
	return true
}

// parseMovieFilters builds the repository filters from list query
// parameters. Range filters require both ends; a single bound is
// silently ignored, matching the list contract.
func parseMovieFilters(r *http.Request, defaultPageSize, maxPageSize int) (database.MovieListFilters, error) {
	q := r.URL.Query()

	filters := database.MovieListFilters{
		Search:       strings.TrimSpace(q.Get("search")),
		Page:         1,
		ItemsPerPage: defaultPageSize,
	}

	if raw := q.Get("situation"); raw != "" {
		situation := models.MovieSituation(raw)
		if !situation.Valid() {
			return filters, errors.New("invalid situation filter")
		}
		filters.Situation = &situation
	}

	if raw := strings.TrimSpace(q.Get("genre")); raw != "" {
		filters.Genre = &raw
	}

	durationStart, err := optionalInt(q.Get("durationStart"))
	if err != nil {
		return filters, errors.New("durationStart must be an integer")
	}
	durationEnd, err := optionalInt(q.Get("durationEnd"))
	if err != nil {
		return filters, errors.New("durationEnd must be an integer")
	}
	filters.DurationStart = durationStart
	filters.DurationEnd = durationEnd

	releaseStart, err := optionalDate(q.Get("releaseStart"))
	if err != nil {
		return filters, errors.New("releaseStart must be formatted as YYYY-MM-DD")
	}
	releaseEnd, err := optionalDate(q.Get("releaseEnd"))
	if err != nil {
		return filters, errors.New("releaseEnd must be formatted as YYYY-MM-DD")
	}
	filters.ReleaseStart = releaseStart
	filters.ReleaseEnd = releaseEnd

	page, itemsPerPage, err := parsePagination(r, defaultPageSize, maxPageSize)
	if err != nil {
		return filters, err
	}
	filters.Page = page
	filters.ItemsPerPage = itemsPerPage

	return filters, nil
}

// parsePagination extracts page and itemsPerPage, clamping itemsPerPage
// to the configured maximum.
func parsePagination(r *http.Request, defaultPageSize, maxPageSize int) (int, int, error) {
	q := r.URL.Query()

	page := 1
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return 0, 0, errors.New("page must be a positive integer")
		}
		page = n
	}

	itemsPerPage := defaultPageSize
	if raw := q.Get("itemsPerPage"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return 0, 0, errors.New("itemsPerPage must be a positive integer")
		}
		itemsPerPage = n
	}
	if maxPageSize > 0 && itemsPerPage > maxPageSize {
		itemsPerPage = maxPageSize
	}

	return page, itemsPerPage, nil
}

func optionalInt(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func optionalDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(releaseDateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
