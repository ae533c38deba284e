// QuakeMap - Real-Time Seismic Event Ingestion and Spatial Queries
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quakemap/quakemap/internal/config"
)

// Router wires handlers and server configuration into an HTTP handler.
type Router struct {
	handler *Handler
	cfg     *config.ServerConfig
}

// NewRouter creates a router over the given handler set.
func NewRouter(handler *Handler, cfg *config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Setup configures all routes and the global middleware stack.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: router.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))

	// Health endpoints get their own generous limit so monitoring cannot
	// starve out data queries and vice versa.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(httprate.LimitByIP(1000, time.Minute))
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route("/api/v1/earthquakes", func(r chi.Router) {
		r.Use(httprate.LimitByIP(router.cfg.RateLimit, time.Minute))
		r.Use(prometheusMetrics)

		r.Get("/", router.handler.Earthquakes)
		r.Get("/geojson", router.handler.EarthquakesGeoJSON)
		r.Get("/timeline", router.handler.Timeline)
		r.Get("/nearby", router.handler.Nearby)
		r.Get("/overlay", router.handler.Overlay)
		r.Get("/nearest", router.handler.Nearest)
		r.Get("/buffered", router.handler.Buffered)
		r.Get("/clusters", router.handler.Clusters)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
