// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marqueehq/marquee/internal/database"
	"github.com/marqueehq/marquee/internal/models"
	"github.com/marqueehq/marquee/internal/rating"
)

// movieID extracts and validates the {id} route parameter. On failure it
// writes a 400 and returns false.
func movieID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		NewResponseWriter(w, r).BadRequest("Movie id must be a valid UUID")
		return "", false
	}
	return id, true
}

// MovieCreate handles POST /movies.
func (h *Handler) MovieCreate(w http.ResponseWriter, r *http.Request) {
	var req movieCreateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	params := database.MovieCreateParams{
		Title:             req.Title,
		OriginalTitle:     req.OriginalTitle,
		Language:          req.Language,
		Synopsis:          req.Synopsis,
		TrailerURL:        req.TrailerURL,
		PosterURL:         req.PosterURL,
		Budget:            req.Budget,
		Revenue:           req.Revenue,
		ReleaseDate:       req.ReleaseDate,
		DurationInMinutes: req.DurationInMinutes,
		Genres:            req.Genres,
	}
	if req.Situation != nil {
		params.Situation = models.MovieSituation(*req.Situation)
	}
	if req.Popularity != nil {
		params.Popularity = *req.Popularity
	}

	movie, err := h.movies.Create(r.Context(), params)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			NewResponseWriter(w, r).Conflict("A movie with this title already exists")
			return
		}
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	NewResponseWriter(w, r).Created(movie)
}

// MovieList handles GET /movies.
func (h *Handler) MovieList(w http.ResponseWriter, r *http.Request) {
	filters, err := parseMovieFilters(r, h.config.DefaultPageSize, h.config.MaxPageSize)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}

	result, err := h.movies.List(r.Context(), filters)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	NewResponseWriter(w, r).SuccessWithPagination(result.Items, &PaginationMeta{
		Page:         result.Page,
		ItemsPerPage: filters.ItemsPerPage,
		Total:        result.Total,
		TotalPages:   result.TotalPages,
	})
}

// MovieGet handles GET /movies/{id}.
func (h *Handler) MovieGet(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}

	movie, err := h.movies.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			NewResponseWriter(w, r).NotFound("Movie not found")
			return
		}
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	NewResponseWriter(w, r).Success(movie)
}

// MovieUpdate handles PATCH /movies/{id}.
func (h *Handler) MovieUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}

	var req movieUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	params := database.MovieUpdateParams{
		Title:             req.Title,
		OriginalTitle:     req.OriginalTitle,
		Language:          req.Language,
		Synopsis:          req.Synopsis,
		Popularity:        req.Popularity,
		TrailerURL:        req.TrailerURL,
		PosterURL:         req.PosterURL,
		Budget:            req.Budget,
		Revenue:           req.Revenue,
		ReleaseDate:       req.ReleaseDate,
		DurationInMinutes: req.DurationInMinutes,
		Genres:            req.Genres,
	}
	if req.Situation != nil {
		situation := models.MovieSituation(*req.Situation)
		params.Situation = &situation
	}

	movie, err := h.movies.Update(r.Context(), id, params)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			NewResponseWriter(w, r).NotFound("Movie not found")
		case errors.Is(err, database.ErrDuplicate):
			NewResponseWriter(w, r).Conflict("A movie with this title already exists")
		default:
			NewResponseWriter(w, r).DatabaseError(err)
		}
		return
	}

	NewResponseWriter(w, r).Success(movie)
}

// MovieDelete handles DELETE /movies/{id}.
func (h *Handler) MovieDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}

	if err := h.movies.SoftDelete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			NewResponseWriter(w, r).NotFound("Movie not found")
			return
		}
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	NewResponseWriter(w, r).NoContent()
}

// MovieRate handles PATCH /movies/{id}/rating. The submission folds
// into the stored weighted average; an omitted votesQuantity counts as
// one vote.
func (h *Handler) MovieRate(w http.ResponseWriter, r *http.Request) {
	id, ok := movieID(w, r)
	if !ok {
		return
	}

	var req ratingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	sub := rating.Submission{Rating: req.Rating, Votes: 1}
	if req.VotesQuantity != nil {
		sub.Votes = *req.VotesQuantity
	}

	movie, err := h.movies.ApplyRating(r.Context(), id, sub)
	if err != nil {
		switch {
		case errors.Is(err, database.ErrNotFound):
			NewResponseWriter(w, r).NotFound("Movie not found")
		case errors.Is(err, rating.ErrRatingOutOfRange), errors.Is(err, rating.ErrInvalidVotes):
			NewResponseWriter(w, r).BadRequest(err.Error())
		case errors.Is(err, database.ErrConcurrentUpdate):
			NewResponseWriter(w, r).Conflict("Rating was updated concurrently, please retry")
		default:
			NewResponseWriter(w, r).DatabaseError(err)
		}
		return
	}

	NewResponseWriter(w, r).Success(movie)
}
