// Marquee - Movie Catalog and Release Notification Backend
// Copyright 2026 Marquee Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/marqueehq/marquee

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router wires handlers and middleware into the HTTP surface.
type Router struct {
	handler    *Handler
	middleware *Middleware
}

// NewRouter creates a router from the given handler and middleware set.
func NewRouter(handler *Handler, middleware *Middleware) *Router {
	return &Router{handler: handler, middleware: middleware}
}

// Setup builds the route tree.
//
// Reads on the movie catalog are public. Writes require a valid token;
// user management and the manual digest trigger additionally require
// the admin role.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(RequestLogger())
	r.Use(chimiddleware.Recoverer)
	r.Use(router.middleware.CORS())

	r.Get("/healthz", router.handler.Health)
	r.Get("/healthz/live", router.handler.HealthLive)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.middleware.RateLimit())

		r.With(router.middleware.RateLimitAuth()).Post("/auth/login", router.handler.Login)

		r.Route("/movies", func(r chi.Router) {
			r.Get("/", router.handler.MovieList)
			r.Get("/{id}", router.handler.MovieGet)

			r.Group(func(r chi.Router) {
				r.Use(router.middleware.Authenticate)
				r.Post("/", router.handler.MovieCreate)
				r.Patch("/{id}", router.handler.MovieUpdate)
				r.Patch("/{id}/rating", router.handler.MovieRate)
				r.Delete("/{id}", router.handler.MovieDelete)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", router.handler.UserCreate)

			r.Group(func(r chi.Router) {
				r.Use(router.middleware.Authenticate)
				r.Use(router.middleware.RequireAdmin)
				r.Get("/", router.handler.UserList)
				r.Get("/{id}", router.handler.UserGet)
				r.Delete("/{id}", router.handler.UserDelete)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(router.middleware.Authenticate)
			r.Use(router.middleware.RequireAdmin)
			r.Post("/digest/run", router.handler.DigestRun)
		})
	})

	return r
}
