// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"

	"github.com/marqueehq/marquee/internal/database"
	"github.com/marqueehq/marquee/internal/models"
	"github.com/marqueehq/marquee/internal/rating"
)

const testMovieID = "7f9c24e8-3b2a-4f01-9e83-1a2b3c4d5e6f"

type mockMovieStore struct {
	createFn      func(ctx context.Context, params database.MovieCreateParams) (models.Movie, error)
	getFn         func(ctx context.Context, id string) (models.Movie, error)
	listFn        func(ctx context.Context, filters database.MovieListFilters) (database.MovieListResult, error)
	updateFn      func(ctx context.Context, id string, params database.MovieUpdateParams) (models.Movie, error)
	softDeleteFn  func(ctx context.Context, id string) error
	applyRatingFn func(ctx context.Context, id string, sub rating.Submission) (models.Movie, error)
}

func (m *mockMovieStore) Create(ctx context.Context, params database.MovieCreateParams) (models.Movie, error) {
	return m.createFn(ctx, params)
}

func (m *mockMovieStore) GetByID(ctx context.Context, id string) (models.Movie, error) {
	return m.getFn(ctx, id)
}

func (m *mockMovieStore) List(ctx context.Context, filters database.MovieListFilters) (database.MovieListResult, error) {
	return m.listFn(ctx, filters)
}

func (m *mockMovieStore) Update(ctx context.Context, id string, params database.MovieUpdateParams) (models.Movie, error) {
	return m.updateFn(ctx, id, params)
}

func (m *mockMovieStore) SoftDelete(ctx context.Context, id string) error {
	return m.softDeleteFn(ctx, id)
}

func (m *mockMovieStore) ApplyRating(ctx context.Context, id string, sub rating.Submission) (models.Movie, error) {
	return m.applyRatingFn(ctx, id, sub)
}

// newMovieRouter mounts the movie handlers without auth middleware so
// handler behavior can be exercised directly.
func newMovieRouter(store MovieStore) http.Handler {
	h := NewHandler(store, nil, nil, nil, nil, HandlerConfig{DefaultPageSize: 10, MaxPageSize: 100})

	r := chi.NewRouter()
	r.Post("/movies", h.MovieCreate)
	r.Get("/movies", h.MovieList)
	r.Get("/movies/{id}", h.MovieGet)
	r.Patch("/movies/{id}", h.MovieUpdate)
	r.Patch("/movies/{id}/rating", h.MovieRate)
	r.Delete("/movies/{id}", h.MovieDelete)
	return r
}

func TestMovieCreate(t *testing.T) {
	var gotParams database.MovieCreateParams
	store := &mockMovieStore{
		createFn: func(_ context.Context, params database.MovieCreateParams) (models.Movie, error) {
			gotParams = params
			return models.Movie{ID: testMovieID, Title: params.Title}, nil
		},
	}

	body := `{"title":"Inception","situation":"upcoming","genre":["Sci-Fi","Thriller"]}`
	req := httptest.NewRequest(http.MethodPost, "/movies", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newMovieRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	if gotParams.Title != "Inception" {
		t.Errorf("title = %q", gotParams.Title)
	}
	if gotParams.Situation != models.SituationUpcoming {
		t.Errorf("situation = %q", gotParams.Situation)
	}
	if len(gotParams.Genres) != 2 {
		t.Errorf("genres = %v", gotParams.Genres)
	}
}

func TestMovieCreateValidation(t *testing.T) {
	store := &mockMovieStore{
		createFn: func(context.Context, database.MovieCreateParams) (models.Movie, error) {
			t.Fatal("store must not be called for invalid input")
			return models.Movie{}, nil
		},
	}
	router := newMovieRouter(store)

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"situation":"upcoming"}`},
		{"invalid situation", `{"title":"X","situation":"unknown"}`},
		{"empty body", ``},
		{"unknown field", `{"title":"X","bogus":true}`},
		{"malformed json", `{"title":`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/movies", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestMovieCreateDuplicateTitle(t *testing.T) {
	store := &mockMovieStore{
		createFn: func(context.Context, database.MovieCreateParams) (models.Movie, error) {
			return models.Movie{}, database.ErrDuplicate
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/movies", strings.NewReader(`{"title":"Inception"}`))
	rec := httptest.NewRecorder()
	newMovieRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
}

func TestMovieGetNotFound(t *testing.T) {
	store := &mockMovieStore{
		getFn: func(context.Context, string) (models.Movie, error) {
			return models.Movie{}, database.ErrNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/movies/"+testMovieID, nil)
	rec := httptest.NewRecorder()
	newMovieRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestMovieGetInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/movies/not-a-uuid", nil)
	rec := httptest.NewRecorder()
	newMovieRouter(&mockMovieStore{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestMovieListFilters(t *testing.T) {
	var gotFilters database.MovieListFilters
	store := &mockMovieStore{
		listFn: func(_ context.Context, filters database.MovieListFilters) (database.MovieListResult, error) {
			gotFilters = filters
			return database.MovieListResult{
				Items:      []models.Movie{{ID: testMovieID, Title: "Dune"}},
				Total:      1,
				Page:       filters.Page,
				TotalPages: 1,
			}, nil
		},
	}

	url := "/movies?search=dune&situation=released&genre=Sci-Fi" +
		"&durationStart=90&durationEnd=180&releaseStart=2026-01-01&releaseEnd=2026-12-31" +
		"&page=2&itemsPerPage=5"
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	newMovieRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if gotFilters.Search != "dune" {
		t.Errorf("search = %q", gotFilters.Search)
	}
	if gotFilters.Situation == nil || *gotFilters.Situation != models.SituationReleased {
		t.Errorf("situation = %v", gotFilters.Situation)
	}
	if gotFilters.Genre == nil || *gotFilters.Genre != "Sci-Fi" {
		t.Errorf("genre = %v", gotFilters.Genre)
	}
	if gotFilters.DurationStart == nil || *gotFilters.DurationStart != 90 {
		t.Errorf("durationStart = %v", gotFilters.DurationStart)
	}
	if gotFilters.ReleaseEnd == nil || !gotFilters.ReleaseEnd.Equal(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("releaseEnd = %v", gotFilters.ReleaseEnd)
	}
	if gotFilters.Page != 2 || gotFilters.ItemsPerPage != 5 {
		t.Errorf("pagination = %d/%d", gotFilters.Page, gotFilters.ItemsPerPage)
	}

	resp := decodeEnvelope(t, rec)
	if resp.Meta == nil || resp.Meta.Pagination == nil || resp.Meta.Pagination.Total != 1 {
		t.Errorf("pagination meta = %+v", resp.Meta)
	}
}

func TestMovieListClampsPageSize(t *testing.T) {
	var gotFilters database.MovieListFilters
	store := &mockMovieStore{
		listFn: func(_ context.Context, filters database.MovieListFilters) (database.MovieListResult, error) {
			gotFilters = filters
			return database.MovieListResult{Page: 1, TotalPages: 0}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/movies?itemsPerPage=5000", nil)
	rec := httptest.NewRecorder()
	newMovieRouter(store).ServeHTTP(rec, req)

	if gotFilters.ItemsPerPage != 100 {
		t.Errorf("itemsPerPage = %d, want clamped to 100", gotFilters.ItemsPerPage)
	}
}

func TestMovieListBadQuery(t *testing.T) {
	router := newMovieRouter(&mockMovieStore{
		listFn: func(context.Context, database.MovieListFilters) (database.MovieListResult, error) {
			t.Fatal("store must not be called for invalid query")
			return database.MovieListResult{}, nil
		},
	})

	for _, url := range []string{
		"/movies?page=0",
		"/movies?page=abc",
		"/movies?itemsPerPage=-1",
		"/movies?situation=bogus",
		"/movies?durationStart=soon",
		"/movies?releaseStart=January",
	} {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", url, rec.Code)
		}
	}
}

func TestMovieRateDefaultsToSingleVote(t *testing.T) {
	var gotSub rating.Submission
	store := &mockMovieStore{
		applyRatingFn: func(_ context.Context, _ string, sub rating.Submission) (models.Movie, error) {
			gotSub = sub
			return models.Movie{ID: testMovieID, VotesQuantity: 1, RatingPercentage: 80}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPatch, "/movies/"+testMovieID+"/rating", strings.NewReader(`{"rating":80}`))
	rec := httptest.NewRecorder()
	newMovieRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if gotSub.Rating != 80 || gotSub.Votes != 1 {
		t.Errorf("submission = %+v, want rating 80 with 1 vote", gotSub)
	}
}

func TestMovieRateBulkVotes(t *testing.T) {
	var gotSub rating.Submission
	store := &mockMovieStore{
		applyRatingFn: func(_ context.Context, _ string, sub rating.Submission) (models.Movie, error) {
			gotSub = sub
			return models.Movie{ID: testMovieID}, nil
		},
	}

	body := `{"rating":62.5,"votesQuantity":40}`
	req := httptest.NewRequest(http.MethodPatch, "/movies/"+testMovieID+"/rating", strings.NewReader(body))
	rec := httptest.NewRecorder()
	newMovieRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if gotSub.Rating != 62.5 || gotSub.Votes != 40 {
		t.Errorf("submission = %+v", gotSub)
	}
}

func TestMovieRateValidation(t *testing.T) {
	router := newMovieRouter(&mockMovieStore{
		applyRatingFn: func(context.Context, string, rating.Submission) (models.Movie, error) {
			t.Fatal("store must not be called for invalid rating")
			return models.Movie{}, nil
		},
	})

	for _, body := range []string{
		`{"rating":101}`,
		`{"rating":-0.5}`,
		`{"rating":50,"votesQuantity":0}`,
		`{"rating":50,"votesQuantity":-3}`,
	} {
		req := httptest.NewRequest(http.MethodPatch, "/movies/"+testMovieID+"/rating", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestMovieRateConcurrentConflict(t *testing.T) {
	store := &mockMovieStore{
		applyRatingFn: func(context.Context, string, rating.Submission) (models.Movie, error) {
			return models.Movie{}, database.ErrConcurrentUpdate
		},
	}

	req := httptest.NewRequest(http.MethodPatch, "/movies/"+testMovieID+"/rating", strings.NewReader(`{"rating":50}`))
	rec := httptest.NewRecorder()
	newMovieRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}

	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Code != ErrCodeConflict {
		t.Errorf("error = %+v", resp.Error)
	}
}

func TestMovieUpdatePartial(t *testing.T) {
	var gotParams database.MovieUpdateParams
	store := &mockMovieStore{
		updateFn: func(_ context.Context, _ string, params database.MovieUpdateParams) (models.Movie, error) {
			gotParams = params
			return models.Movie{ID: testMovieID, Title: "Dune: Part Two"}, nil
		},
	}

	body := `{"title":"Dune: Part Two","situation":"released"}`
	req := httptest.NewRequest(http.MethodPatch, "/movies/"+testMovieID, strings.NewReader(body))
	rec := httptest.NewRecorder()
	newMovieRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if gotParams.Title == nil || *gotParams.Title != "Dune: Part Two" {
		t.Errorf("title = %v", gotParams.Title)
	}
	if gotParams.Situation == nil || *gotParams.Situation != models.SituationReleased {
		t.Errorf("situation = %v", gotParams.Situation)
	}
	if gotParams.Synopsis != nil || gotParams.Popularity != nil {
		t.Errorf("untouched fields must stay nil: %+v", gotParams)
	}
}

func TestMovieDelete(t *testing.T) {
	var deletedID string
	store := &mockMovieStore{
		softDeleteFn: func(_ context.Context, id string) error {
			deletedID = id
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/movies/"+testMovieID, nil)
	rec := httptest.NewRecorder()
	newMovieRouter(store).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if deletedID != testMovieID {
		t.Errorf("deleted id = %q", deletedID)
	}
}

func TestMovieResponseOmitsInternalFields(t *testing.T) {
	store := &mockMovieStore{
		getFn: func(context.Context, string) (models.Movie, error) {
			return models.Movie{ID: testMovieID, Title: "Dune", RatingVersion: 7}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/movies/"+testMovieID, nil)
	rec := httptest.NewRecorder()
	newMovieRouter(store).ServeHTTP(rec, req)

	resp := decodeEnvelope(t, rec)
	raw, err := json.Marshal(resp.Data)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(raw), "rating_version") || strings.Contains(string(raw), "ratingVersion") {
		t.Errorf("rating version leaked into response: %s", raw)
	}
}
