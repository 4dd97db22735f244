// Package vetting exposes reputation checks over HTTP.
package vetting

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

type RouterOptions struct {
	// RequestsPerMinute limits each client IP. Zero means 100.
	RequestsPerMinute int
	AllowedOrigins    []string
	// Gatherer backs /metrics. Nil disables the endpoint.
	Gatherer prometheus.Gatherer
}

func NewRouter(h *Handler, opts RouterOptions, log zerolog.Logger) http.Handler {
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = 100
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(RequestLogger(log.With().Str("component", "http").Logger()))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.HealthHandler)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(opts.RequestsPerMinute, time.Minute))

		r.Route("/reputation", func(r chi.Router) {
			r.Post("/", h.VetHandler)
			r.Get("/{target}", h.LookupHandler)
		})
		r.Route("/cache", func(r chi.Router) {
			r.Get("/stats", h.CacheStatsHandler)
			r.Post("/clear", h.ClearCacheHandler)
		})
		r.Get("/catalog", h.CatalogHandler)
	})
	return r
}
