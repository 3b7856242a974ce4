// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marqueehq/marquee/internal/metrics"
	"github.com/marqueehq/marquee/internal/models"
)

// UsersRepository provides persistence for user accounts.
type UsersRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `
	id,
	name,
	email,
	password_hash,
	role,
	created_at,
	updated_at,
	deleted_at
`

// UserCreateParams bundles the fields required to create a user. The
// password must already be hashed.
type UserCreateParams struct {
	Name         string
	Email        string
	PasswordHash string
	Role         models.UserRole
}

// Create inserts a user. An active user with the same email yields
// ErrDuplicate.
func (r *UsersRepository) Create(ctx context.Context, params UserCreateParams) (models.User, error) {
	role := params.Role
	if role == "" {
		role = models.RoleUser
	}

	query := fmt.Sprintf(`
		INSERT INTO users (name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, userColumns)

	started := time.Now()
	row := r.pool.QueryRow(ctx, query,
		params.Name, strings.ToLower(strings.TrimSpace(params.Email)), params.PasswordHash, string(role))
	user, err := scanUser(row)
	metrics.RecordDBQuery("INSERT", "users", time.Since(started), err)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrDuplicate
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

// GetByID fetches an active user by identifier.
func (r *UsersRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1 AND deleted_at IS NULL`, userColumns)
	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetByEmail fetches an active user by email. Lookup is case-insensitive.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (models.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE lower(email) = lower($1) AND deleted_at IS NULL`, userColumns)
	user, err := scanUser(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// List returns active users ordered by name, with offset pagination.
func (r *UsersRepository) List(ctx context.Context, page, itemsPerPage int) ([]models.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if itemsPerPage < 1 {
		itemsPerPage = 10
	}

	var total int64
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM users WHERE deleted_at IS NULL ORDER BY name ASC LIMIT %d OFFSET %d`,
		userColumns, itemsPerPage, (page-1)*itemsPerPage)

	started := time.Now()
	rows, err := r.pool.Query(ctx, query)
	metrics.RecordDBQuery("SELECT", "users", time.Since(started), err)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]models.User, 0, itemsPerPage)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, total, rows.Err()
}

// SoftDelete marks a user as deleted. Deleted users stop receiving digests
// and can no longer authenticate.
func (r *UsersRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveRecipientEmails returns the email of every active user, ordered for
// deterministic digest dispatch.
func (r *UsersRepository) ActiveRecipientEmails(ctx context.Context) ([]string, error) {
	started := time.Now()
	rows, err := r.pool.Query(ctx,
		`SELECT email FROM users WHERE deleted_at IS NULL ORDER BY email ASC`)
	metrics.RecordDBQuery("SELECT", "users", time.Since(started), err)
	if err != nil {
		return nil, fmt.Errorf("query recipients: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.DeletedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	return u, nil
}
