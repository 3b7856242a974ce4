// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/marqueehq/marquee/internal/auth"
	"github.com/marqueehq/marquee/internal/database"
	"github.com/marqueehq/marquee/internal/digest/scheduler"
	"github.com/marqueehq/marquee/internal/logging"
	"github.com/marqueehq/marquee/internal/models"
	"github.com/marqueehq/marquee/internal/rating"
)

// MovieStore is the movie persistence surface the handlers depend on.
// *database.MoviesRepository satisfies it.
type MovieStore interface {
	Create(ctx context.Context, params database.MovieCreateParams) (models.Movie, error)
	GetByID(ctx context.Context, id string) (models.Movie, error)
	List(ctx context.Context, filters database.MovieListFilters) (database.MovieListResult, error)
	Update(ctx context.Context, id string, params database.MovieUpdateParams) (models.Movie, error)
	SoftDelete(ctx context.Context, id string) error
	ApplyRating(ctx context.Context, id string, sub rating.Submission) (models.Movie, error)
}

// UserStore is the user persistence surface the handlers depend on.
// *database.UsersRepository satisfies it.
type UserStore interface {
	Create(ctx context.Context, params database.UserCreateParams) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByEmail(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context, page, itemsPerPage int) ([]models.User, int64, error)
	SoftDelete(ctx context.Context, id string) error
}

// DigestRunner triggers an on-demand digest run.
// *scheduler.Scheduler satisfies it.
type DigestRunner interface {
	RunNow(ctx context.Context) (*scheduler.RunReport, error)
}

// HealthChecker reports backing-store health. *database.Store
// satisfies it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HandlerConfig holds the tunables the handlers need.
type HandlerConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// Handler implements all HTTP endpoints.
type Handler struct {
	movies MovieStore
	users  UserStore
	digest DigestRunner
	health HealthChecker
	tokens *auth.TokenManager
	config HandlerConfig
	logger zerolog.Logger
}

// NewHandler creates the endpoint handler set.
func NewHandler(movies MovieStore, users UserStore, digest DigestRunner, health HealthChecker, tokens *auth.TokenManager, config HandlerConfig) *Handler {
	if config.DefaultPageSize <= 0 {
		config.DefaultPageSize = 10
	}
	if config.MaxPageSize <= 0 {
		config.MaxPageSize = 100
	}

	return &Handler{
		movies: movies,
		users:  users,
		digest: digest,
		health: health,
		tokens: tokens,
		config: config,
		logger: logging.With().Str("component", "api").Logger(),
	}
}
