// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"net/http"
	"time"
)

// healthStatus is the payload returned by the health endpoints.
type healthStatus struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthLive handles GET /healthz/live. Process liveness only, no
// dependency checks.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(healthStatus{
		Status:    "ok",
		Database:  "skipped",
		Timestamp: time.Now(),
	})
}

// Health handles GET /healthz. Readiness: fails when the database is
// unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:    "ok",
		Database:  "ok",
		Timestamp: time.Now(),
	}

	if h.health == nil {
		status.Database = "skipped"
	} else if err := h.health.HealthCheck(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Health check failed")
		status.Status = "degraded"
		status.Database = "unreachable"
		rw := NewResponseWriter(w, r)
		rw.writeJSON(http.StatusServiceUnavailable, APIResponse{Success: false, Data: status})
		return
	}

	NewResponseWriter(w, r).Success(status)
}
