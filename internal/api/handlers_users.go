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

	"github.com/marqueehq/marquee/internal/auth"
	"github.com/marqueehq/marquee/internal/database"
	"github.com/marqueehq/marquee/internal/models"
)

// UserCreate handles POST /users. Passwords are stored as bcrypt hashes
// only. The endpoint is public, so the role is pinned to RoleUser; a
// role field in the payload is rejected as an unknown field.
func (h *Handler) UserCreate(w http.ResponseWriter, r *http.Request) {
	var req userCreateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Error().Err(err).Msg("Password hashing failed")
		NewResponseWriter(w, r).InternalError("Could not process password")
		return
	}

	params := database.UserCreateParams{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	}

	user, err := h.users.Create(r.Context(), params)
	if err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			NewResponseWriter(w, r).Conflict("A user with this email already exists")
			return
		}
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	NewResponseWriter(w, r).Created(user)
}

// UserList handles GET /users.
func (h *Handler) UserList(w http.ResponseWriter, r *http.Request) {
	page, itemsPerPage, err := parsePagination(r, h.config.DefaultPageSize, h.config.MaxPageSize)
	if err != nil {
		NewResponseWriter(w, r).BadRequest(err.Error())
		return
	}

	users, total, err := h.users.List(r.Context(), page, itemsPerPage)
	if err != nil {
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	totalPages := total / int64(itemsPerPage)
	if total%int64(itemsPerPage) != 0 {
		totalPages++
	}

	NewResponseWriter(w, r).SuccessWithPagination(users, &PaginationMeta{
		Page:         page,
		ItemsPerPage: itemsPerPage,
		Total:        total,
		TotalPages:   totalPages,
	})
}

// UserGet handles GET /users/{id}.
func (h *Handler) UserGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		NewResponseWriter(w, r).BadRequest("User id must be a valid UUID")
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			NewResponseWriter(w, r).NotFound("User not found")
			return
		}
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	NewResponseWriter(w, r).Success(user)
}

// UserDelete handles DELETE /users/{id}. Deleted users stop receiving
// release digests.
func (h *Handler) UserDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		NewResponseWriter(w, r).BadRequest("User id must be a valid UUID")
		return
	}

	if err := h.users.SoftDelete(r.Context(), id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			NewResponseWriter(w, r).NotFound("User not found")
			return
		}
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	NewResponseWriter(w, r).NoContent()
}
