// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/marqueehq/marquee/internal/auth"
	"github.com/marqueehq/marquee/internal/logging"
	"github.com/marqueehq/marquee/internal/metrics"
	"github.com/marqueehq/marquee/internal/models"
)

type claimsContextKey struct{}

// ClaimsFromContext returns the authenticated claims stored by
// Authenticate, or nil when the request is unauthenticated.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*auth.Claims)
	return claims
}

// MiddlewareConfig holds configuration for the middleware factories.
type MiddlewareConfig struct {
	CORSAllowedOrigins []string

	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool
}

// Middleware provides the router's middleware factories, built on the
// Chi ecosystem (go-chi/cors, go-chi/httprate).
type Middleware struct {
	config MiddlewareConfig
	cors   func(http.Handler) http.Handler
	tokens *auth.TokenManager
}

// NewMiddleware creates a middleware factory. The token manager may be
// nil, in which case Authenticate rejects every request.
func NewMiddleware(config MiddlewareConfig, tokens *auth.TokenManager) *Middleware {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins: config.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	})

	return &Middleware{config: config, cors: corsHandler, tokens: tokens}
}

// CORS returns the CORS middleware.
func (m *Middleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit returns an IP-based rate limiter with the configured window,
// or a no-op middleware when rate limiting is disabled.
func (m *Middleware) RateLimit() func(http.Handler) http.Handler {
	return m.rateLimit(m.config.RateLimitRequests, m.config.RateLimitWindow)
}

// RateLimitAuth returns a strict limiter for the login endpoint.
func (m *Middleware) RateLimitAuth() func(http.Handler) http.Handler {
	return m.rateLimit(5, 5*time.Minute)
}

func (m *Middleware) rateLimit(requests int, window time.Duration) func(http.Handler) http.Handler {
	if m.config.RateLimitDisabled {
		return func(next http.Handler) http.Handler {
			return next
		}
	}

	return httprate.Limit(
		requests,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			metrics.APIRateLimitHits.WithLabelValues(r.URL.Path).Inc()
			NewResponseWriter(w, r).TooManyRequests("Rate limit exceeded")
		}),
	)
}

// Authenticate validates the Bearer token and stores the claims in the
// request context. Requests without a valid token are rejected.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.tokens == nil {
			NewResponseWriter(w, r).Unauthorized("Authentication is not configured")
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			NewResponseWriter(w, r).Unauthorized("Missing or malformed Authorization header")
			return
		}

		claims, err := m.tokens.Validate(token)
		if err != nil {
			NewResponseWriter(w, r).Unauthorized("Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects requests whose claims do not carry the admin
// role. Must be mounted after Authenticate.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		if claims == nil {
			NewResponseWriter(w, r).Unauthorized("Authentication required")
			return
		}
		if claims.Role != models.RoleAdmin {
			NewResponseWriter(w, r).Forbidden("Admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestIDWithLogging adds a request ID to the context and the
// X-Request-ID response header, so every log line of the request chain
// carries the same correlation key.
func RequestIDWithLogging() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = logging.GenerateRequestID()
			}

			ctx := logging.ContextWithRequestID(r.Context(), requestID)
			w.Header().Set("X-Request-ID", requestID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger logs one structured line per completed request and
// records the Prometheus request metrics.
func RequestLogger() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			started := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			metrics.TrackActiveRequest(true)
			defer metrics.TrackActiveRequest(false)

			next.ServeHTTP(ww, r)

			duration := time.Since(started)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			metrics.RecordAPIRequest(r.Method, routePattern(r), strconv.Itoa(status), duration)

			event := logging.Ctx(r.Context()).Info()
			if status >= http.StatusInternalServerError {
				event = logging.Ctx(r.Context()).Error()
			}
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Dur("duration", duration).
				Int("bytes", ww.BytesWritten()).
				Str("remote", r.RemoteAddr).
				Msg("Request completed")
		})
	}
}

// routePattern returns the Chi route pattern for metric labels, falling
// back to the raw path when no route matched. Patterns keep label
// cardinality bounded (/movies/{id} instead of every UUID).
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
