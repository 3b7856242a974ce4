// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package database

import (
	"context"
	"fmt"
	"time"
)

// Migration represents a versioned schema migration. Migrations are
// append-only once any deployment has applied them.
type Migration struct {
	Version     int
	Name        string
	SQL         string
	AppliedAt   time.Time
	Description string
}

// schemaMigrationsTable tracks applied migrations.
const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// initialSchema is the consolidated base schema. It is idempotent; new
// columns after the first release go through versioned migrations instead.
const initialSchema = `
CREATE TABLE IF NOT EXISTS movies (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	title TEXT NOT NULL,
	original_title TEXT,
	language TEXT,
	synopsis TEXT,
	situation TEXT NOT NULL DEFAULT 'upcoming',
	popularity DOUBLE PRECISION NOT NULL DEFAULT 0,
	votes_quantity BIGINT NOT NULL DEFAULT 0,
	rating_percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
	rating_version BIGINT NOT NULL DEFAULT 0,
	trailer_url TEXT,
	poster_url TEXT,
	budget BIGINT,
	revenue BIGINT,
	release_date TIMESTAMPTZ,
	duration_in_minutes INTEGER,
	genre TEXT[] NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS movies_title_active_uniq
	ON movies (lower(title)) WHERE deleted_at IS NULL;

CREATE INDEX IF NOT EXISTS movies_release_date_idx
	ON movies (release_date) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role TEXT NOT NULL DEFAULT 'user',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	deleted_at TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS users_email_active_uniq
	ON users (lower(email)) WHERE deleted_at IS NULL;
`

// migrations returns all versioned migrations in order. Empty for now; the
// consolidated initial schema covers everything shipped so far.
func migrations() []Migration {
	return []Migration{}
}

// Migrate applies the base schema and any unapplied versioned migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	if _, err := s.pool.Exec(ctx, initialSchema); err != nil {
		return fmt.Errorf("apply base schema: %w", err)
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations() {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		if _, err := s.pool.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.Version, m.Name, err)
		}
		_, err := s.pool.Exec(ctx,
			`INSERT INTO schema_migrations (version, name, description) VALUES ($1, $2, $3)`,
			m.Version, m.Name, m.Description)
		if err != nil {
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		s.logger.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applied migration")
	}

	return nil
}

// appliedMigrations returns all applied migrations keyed by version.
func (s *Store) appliedMigrations(ctx context.Context) (map[int]Migration, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT version, name, COALESCE(description, ''), applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]Migration)
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.Name, &m.Description, &m.AppliedAt); err != nil {
			return nil, fmt.Errorf("scan migration row: %w", err)
		}
		applied[m.Version] = m
	}
	return applied, rows.Err()
}
