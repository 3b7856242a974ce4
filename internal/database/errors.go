// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel errors returned by the repositories. Handlers map these to HTTP
// status codes.
var (
	// ErrNotFound indicates the requested entity does not exist or is
	// soft-deleted.
	ErrNotFound = errors.New("database: not found")

	// ErrDuplicate indicates a uniqueness constraint was violated.
	ErrDuplicate = errors.New("database: duplicate entry")

	// ErrConcurrentUpdate indicates an optimistic write lost its race and
	// exhausted its retries.
	ErrConcurrentUpdate = errors.New("database: concurrent update conflict")
)

// uniqueViolationCode is the PostgreSQL error code for unique_violation.
const uniqueViolationCode = "23505"

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
