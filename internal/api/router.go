// Ferm - Farming Simulation Backend
// Copyright 2026 The Ferm Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// Licensed under the GNU Affero General Public License v3.0 or later.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ferm/internal/authz"
	"ferm/internal/middleware"
)

// Router wires the handlers behind the middleware stack.
type Router struct {
	handler *Handler
	chi     *ChiMiddleware
	authz   *authz.Middleware
}

// NewRouter creates a Router. Denied requests get the JSON error envelope.
func NewRouter(handler *Handler, chiMW *ChiMiddleware, verifier *authz.Verifier, enforcer *authz.Enforcer) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{
		handler: handler,
		chi:     chiMW,
		authz:   authz.NewMiddleware(verifier, enforcer, denyRequest),
	}
}

// Setup builds the route tree.
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(AccessLog)
	r.Use(rt.chi.CORS())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, CodeNotFound, "Route not found", nil, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "Method not allowed", nil, nil)
	})

	r.Get("/health", rt.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(rt.chi.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		r.Use(rt.authz.Authenticate)
		r.Use(rt.authz.Authorize)
		r.Use(rt.handler.ensurePlayer)

		r.Get("/garden/plots", rt.handler.ListPlots)
		r.Post("/garden/plant", rt.handler.Plant)
		r.Post("/garden/harvest", rt.handler.Harvest)

		r.Get("/inventory", rt.handler.Inventory)
		r.Post("/inventory/wash", rt.handler.Wash)

		r.Route("/admin", func(r chi.Router) {
			r.Post("/garden/uproot", rt.handler.Uproot)
			r.Post("/inventory/seeds", rt.handler.GrantSeed)
			r.Post("/maturity/drain", rt.handler.DrainNotifications)
		})
	})

	return r
}
