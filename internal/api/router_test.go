// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/marqueehq/marquee/internal/auth"
	"github.com/marqueehq/marquee/internal/database"
	"github.com/marqueehq/marquee/internal/digest/scheduler"
	"github.com/marqueehq/marquee/internal/models"
)

type mockDigestRunner struct {
	report *scheduler.RunReport
	err    error
}

func (m *mockDigestRunner) RunNow(context.Context) (*scheduler.RunReport, error) {
	return m.report, m.err
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) HealthCheck(context.Context) error {
	return m.err
}

type routerFixture struct {
	handler http.Handler
	tokens  *auth.TokenManager
	digest  *mockDigestRunner
	health  *mockHealthChecker
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	tokens, err := auth.NewTokenManager(strings.Repeat("k", 32), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	movies := &mockMovieStore{
		listFn: func(context.Context, database.MovieListFilters) (database.MovieListResult, error) {
			return database.MovieListResult{Page: 1}, nil
		},
		createFn: func(_ context.Context, params database.MovieCreateParams) (models.Movie, error) {
			return models.Movie{ID: testMovieID, Title: params.Title}, nil
		},
	}
	users := &mockUserStore{
		listFn: func(context.Context, int, int) ([]models.User, int64, error) {
			return nil, 0, nil
		},
	}
	digest := &mockDigestRunner{report: &scheduler.RunReport{Outcome: scheduler.OutcomeNoOp}}
	health := &mockHealthChecker{}

	handler := NewHandler(movies, users, digest, health, tokens, HandlerConfig{DefaultPageSize: 10, MaxPageSize: 100})
	middleware := NewMiddleware(MiddlewareConfig{
		CORSAllowedOrigins: []string{"*"},
		RateLimitDisabled:  true,
	}, tokens)

	return &routerFixture{
		handler: NewRouter(handler, middleware).Setup(),
		tokens:  tokens,
		digest:  digest,
		health:  health,
	}
}

func (f *routerFixture) tokenFor(t *testing.T, role models.UserRole) string {
	t.Helper()
	token, err := f.tokens.Generate(&models.User{ID: testUserID, Email: "ana@example.com", Role: role})
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func (f *routerFixture) do(method, url, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterPublicReads(t *testing.T) {
	f := newRouterFixture(t)

	if rec := f.do(http.MethodGet, "/api/v1/movies", "", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /movies without token: status = %d, want 200", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/healthz", "", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz: status = %d, want 200", rec.Code)
	}
	if rec := f.do(http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /metrics: status = %d, want 200", rec.Code)
	}
}

func TestRouterWritesRequireAuth(t *testing.T) {
	f := newRouterFixture(t)

	tests := []struct {
		method string
		url    string
		body   string
	}{
		{http.MethodPost, "/api/v1/movies", `{"title":"X"}`},
		{http.MethodPatch, "/api/v1/movies/" + testMovieID, `{"title":"X"}`},
		{http.MethodPatch, "/api/v1/movies/" + testMovieID + "/rating", `{"rating":50}`},
		{http.MethodDelete, "/api/v1/movies/" + testMovieID, ""},
		{http.MethodPost, "/api/v1/digest/run", ""},
		{http.MethodGet, "/api/v1/users", ""},
	}

	for _, tt := range tests {
		if rec := f.do(tt.method, tt.url, "", tt.body); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token: status = %d, want 401", tt.method, tt.url, rec.Code)
		}
		if rec := f.do(tt.method, tt.url, "garbage-token", tt.body); rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s with bad token: status = %d, want 401", tt.method, tt.url, rec.Code)
		}
	}
}

func TestRouterAuthenticatedWrite(t *testing.T) {
	f := newRouterFixture(t)
	token := f.tokenFor(t, models.RoleUser)

	rec := f.do(http.MethodPost, "/api/v1/movies", token, `{"title":"Inception"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
}

func TestRouterAdminEndpointsRejectNonAdmin(t *testing.T) {
	f := newRouterFixture(t)
	userToken := f.tokenFor(t, models.RoleUser)

	for _, tt := range []struct {
		method string
		url    string
	}{
		{http.MethodGet, "/api/v1/users"},
		{http.MethodDelete, "/api/v1/users/" + testUserID},
		{http.MethodPost, "/api/v1/digest/run"},
	} {
		if rec := f.do(tt.method, tt.url, userToken, ""); rec.Code != http.StatusForbidden {
			t.Errorf("%s %s as user: status = %d, want 403", tt.method, tt.url, rec.Code)
		}
	}
}

func TestRouterPublicRegistrationCannotGrantAdmin(t *testing.T) {
	tokens, err := auth.NewTokenManager(strings.Repeat("k", 32), time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	var storedRole models.UserRole
	users := &mockUserStore{
		createFn: func(_ context.Context, params database.UserCreateParams) (models.User, error) {
			storedRole = params.Role
			return models.User{ID: testUserID, Email: params.Email, Role: params.Role}, nil
		},
	}

	handler := NewHandler(nil, users, &mockDigestRunner{}, nil, tokens, HandlerConfig{})
	middleware := NewMiddleware(MiddlewareConfig{RateLimitDisabled: true}, tokens)
	router := NewRouter(handler, middleware).Setup()

	do := func(method, url, token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, url, strings.NewReader(body))
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	// A role in the payload is rejected before it reaches the store.
	rec := do(http.MethodPost, "/api/v1/users", "",
		`{"name":"Eve","email":"eve@example.com","password":"sup3r-secret","role":"admin"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("registration with role: status = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	// Clean registration succeeds but is pinned to the regular role.
	rec = do(http.MethodPost, "/api/v1/users", "",
		`{"name":"Eve","email":"eve@example.com","password":"sup3r-secret"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("registration: status = %d: %s", rec.Code, rec.Body.String())
	}
	if storedRole != models.RoleUser {
		t.Fatalf("stored role = %q, want %q", storedRole, models.RoleUser)
	}

	// A token minted for the registered account fails every admin gate.
	token, err := tokens.Generate(&models.User{ID: testUserID, Email: "eve@example.com", Role: storedRole})
	if err != nil {
		t.Fatal(err)
	}
	for _, tt := range []struct {
		method string
		url    string
	}{
		{http.MethodGet, "/api/v1/users"},
		{http.MethodDelete, "/api/v1/users/" + testUserID},
		{http.MethodPost, "/api/v1/digest/run"},
	} {
		if rec := do(tt.method, tt.url, token, ""); rec.Code != http.StatusForbidden {
			t.Errorf("%s %s as self-registered user: status = %d, want 403", tt.method, tt.url, rec.Code)
		}
	}
}

func TestRouterDigestRun(t *testing.T) {
	f := newRouterFixture(t)
	adminToken := f.tokenFor(t, models.RoleAdmin)

	f.digest.report = &scheduler.RunReport{
		Outcome:        scheduler.OutcomeSuccess,
		MatchedCount:   2,
		RecipientCount: 5,
	}

	rec := f.do(http.MethodPost, "/api/v1/digest/run", adminToken, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"outcome":"success"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestRouterDigestRunOverlap(t *testing.T) {
	f := newRouterFixture(t)
	adminToken := f.tokenFor(t, models.RoleAdmin)

	f.digest.report = nil
	f.digest.err = scheduler.ErrRunInProgress

	rec := f.do(http.MethodPost, "/api/v1/digest/run", adminToken, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
}

func TestRouterHealthDegraded(t *testing.T) {
	f := newRouterFixture(t)
	f.health.err = errors.New("connection refused")

	rec := f.do(http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "unreachable") {
		t.Errorf("body = %s", rec.Body.String())
	}

	// Liveness ignores dependency state.
	if rec := f.do(http.MethodGet, "/healthz/live", "", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /healthz/live: status = %d, want 200", rec.Code)
	}
}

func TestRouterRequestIDHeader(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.do(http.MethodGet, "/healthz", "", "")
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "caller-supplied" {
		t.Errorf("X-Request-ID = %q, want caller-supplied", got)
	}
}
