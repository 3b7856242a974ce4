// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"errors"
	"net/http"

	"github.com/marqueehq/marquee/internal/auth"
	"github.com/marqueehq/marquee/internal/database"
	"github.com/marqueehq/marquee/internal/models"
)

// loginResponse is the payload returned by a successful login.
type loginResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Login handles POST /auth/login. Unknown emails and wrong passwords
// produce the same response, so the endpoint cannot be used to probe
// which accounts exist.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if h.tokens == nil {
		NewResponseWriter(w, r).InternalError("Authentication is not configured")
		return
	}

	user, err := h.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			NewResponseWriter(w, r).Unauthorized("Invalid email or password")
			return
		}
		NewResponseWriter(w, r).DatabaseError(err)
		return
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		NewResponseWriter(w, r).Unauthorized("Invalid email or password")
		return
	}

	token, err := h.tokens.Generate(&user)
	if err != nil {
		h.logger.Error().Err(err).Msg("Token generation failed")
		NewResponseWriter(w, r).InternalError("Could not issue token")
		return
	}

	NewResponseWriter(w, r).Success(loginResponse{Token: token, User: user})
}
