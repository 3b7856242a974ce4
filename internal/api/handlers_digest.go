// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"errors"
	"net/http"

	"github.com/marqueehq/marquee/internal/digest/scheduler"
)

// DigestRun handles POST /digest/run, triggering an immediate digest
// run outside the cron schedule. A run already in flight yields 409.
// The report is returned even when the run itself failed; delivery
// failures are run outcomes, not HTTP errors.
func (h *Handler) DigestRun(w http.ResponseWriter, r *http.Request) {
	if h.digest == nil {
		NewResponseWriter(w, r).InternalError("Digest scheduler is not configured")
		return
	}

	report, err := h.digest.RunNow(r.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrRunInProgress) {
			NewResponseWriter(w, r).Conflict("A digest run is already in progress")
			return
		}
		h.logger.Error().Err(err).Msg("Digest run failed to start")
		NewResponseWriter(w, r).InternalError("Could not start digest run")
		return
	}

	NewResponseWriter(w, r).Success(report)
}
