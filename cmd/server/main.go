// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

// Package main is the entry point for the Marquee server.
//
// Marquee is a movie catalog backend with community ratings and a daily
// release-notification digest. The server initializes components in the
// following order:
//
//  1. Configuration: layered defaults, YAML file, environment (Koanf v2)
//  2. Logging: structured zerolog output
//  3. Database: PostgreSQL pool (pgx v5) plus schema migrations
//  4. Mailer: SMTP dispatch behind a circuit breaker
//  5. Digest scheduler: daily cron evaluated in the reference timezone
//  6. HTTP server: Chi router with JWT auth and Prometheus metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (DATABASE_URL, JWT_SECRET, SMTP_HOST, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM:
//   - Stops accepting new connections, draining in-flight requests
//   - Stops the digest scheduler; a run already in flight completes
//   - Closes the database pool
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/marqueehq/marquee/internal/api"
	"github.com/marqueehq/marquee/internal/auth"
	"github.com/marqueehq/marquee/internal/config"
	"github.com/marqueehq/marquee/internal/database"
	"github.com/marqueehq/marquee/internal/digest"
	"github.com/marqueehq/marquee/internal/digest/scheduler"
	"github.com/marqueehq/marquee/internal/logging"
	"github.com/marqueehq/marquee/internal/mail"
	"github.com/marqueehq/marquee/internal/metrics"
	"github.com/marqueehq/marquee/internal/models"
)

const version = "1.0.0"

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	metrics.SetAppInfo(version)

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("version", version).
		Bool("digest_enabled", cfg.Digest.Enabled).
		Msg("Starting Marquee")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.Logger()

	store, err := database.New(ctx, cfg.Database, &logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if err := bootstrapAdmin(ctx, cfg, store); err != nil {
		return fmt.Errorf("bootstrap admin account: %w", err)
	}

	tokens, err := auth.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		if cfg.IsProduction() {
			return fmt.Errorf("initialize token manager: %w", err)
		}
		// Development without a JWT secret still serves public reads.
		logging.Warn().Err(err).Msg("JWT disabled, write endpoints will reject all requests")
		tokens = nil
	}

	digestScheduler, err := buildScheduler(cfg, store, &logger)
	if err != nil {
		return fmt.Errorf("initialize digest scheduler: %w", err)
	}
	if digestScheduler != nil {
		if err := digestScheduler.Start(ctx); err != nil {
			return fmt.Errorf("start digest scheduler: %w", err)
		}
	}

	handler := api.NewHandler(
		store.Movies,
		store.Users,
		digestRunner(digestScheduler),
		store,
		tokens,
		api.HandlerConfig{
			DefaultPageSize: cfg.API.DefaultPageSize,
			MaxPageSize:     cfg.API.MaxPageSize,
		},
	)
	middleware := api.NewMiddleware(api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		RateLimitRequests:  cfg.Security.RateLimitReqs,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
		RateLimitDisabled:  cfg.Security.RateLimitDisabled,
	}, tokens)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, middleware).Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down")

	// Scheduler first: Stop waits for an in-flight digest run to finish.
	if digestScheduler != nil {
		if err := digestScheduler.Stop(); err != nil {
			logging.Error().Err(err).Msg("Digest scheduler stop failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	return nil
}

// buildScheduler wires the digest pipeline. It returns nil when the
// digest is disabled and no SMTP host is configured, so the rest of the
// server runs without it.
func buildScheduler(cfg *config.Config, store *database.Store, logger *zerolog.Logger) (*scheduler.Scheduler, error) {
	if !cfg.Digest.Enabled && cfg.SMTP.Host == "" {
		logging.Info().Msg("Digest disabled, scheduler not started")
		return nil, nil
	}

	mailer, err := mail.NewSMTPMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		UseTLS:   cfg.SMTP.UseTLS,
		Timeout:  cfg.SMTP.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initialize mailer: %w", err)
	}

	renderer, err := digest.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("initialize digest renderer: %w", err)
	}

	return scheduler.New(digestStore{store}, mailer, renderer, logger, scheduler.Config{
		Enabled:  cfg.Digest.Enabled,
		CronSpec: cfg.Digest.Cron,
		Timezone: cfg.Digest.Timezone,
		Subject:  cfg.Digest.Subject,
	})
}

// bootstrapAdmin seeds the configured admin account once. Public
// registration pins every account to the regular role, so this is the
// only path that mints an admin. An existing account with the email is
// left untouched.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, store *database.Store) error {
	if cfg.Security.AdminEmail == "" {
		return nil
	}

	if _, err := store.Users.GetByEmail(ctx, cfg.Security.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, database.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(cfg.Security.AdminPassword)
	if err != nil {
		return err
	}

	name := cfg.Security.AdminName
	if name == "" {
		name = "Administrator"
	}

	if _, err := store.Users.Create(ctx, database.UserCreateParams{
		Name:         name,
		Email:        cfg.Security.AdminEmail,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}); err != nil {
		return err
	}

	logging.Info().Str("email", cfg.Security.AdminEmail).Msg("Admin account created")
	return nil
}

// digestStore joins the movie and user repositories into the single
// read surface the scheduler queries.
type digestStore struct {
	store *database.Store
}

func (d digestStore) MoviesReleasedBetween(ctx context.Context, start, end time.Time) ([]digest.Item, error) {
	return d.store.Movies.MoviesReleasedBetween(ctx, start, end)
}

func (d digestStore) ActiveRecipientEmails(ctx context.Context) ([]string, error) {
	return d.store.Users.ActiveRecipientEmails(ctx)
}

// digestRunner adapts a possibly-nil scheduler to the handler
// dependency without passing a typed nil interface.
func digestRunner(s *scheduler.Scheduler) api.DigestRunner {
	if s == nil {
		return nil
	}
	return s
}
