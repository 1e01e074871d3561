// Package http provides the HTTP transport: router, server, and their
// wiring.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/openlands/caselens/internal/infrastructure/monitoring/logging"
	"github.com/openlands/caselens/internal/infrastructure/monitoring/prometheus"
	"github.com/openlands/caselens/internal/interfaces/http/handlers"
	"github.com/openlands/caselens/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies required
// to construct the complete route tree.
type RouterConfig struct {
	MatchHandler      *handlers.MatchHandler
	StatisticsHandler *handlers.StatisticsHandler
	CorpusHandler     *handlers.CorpusHandler
	HealthHandler     *handlers.HealthHandler

	Logger           logging.Logger
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
}

// NewRouter constructs the route tree: global middleware, public probe
// endpoints, the metrics scrape endpoint, and the API v1 resource groups.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if cfg.Logger != nil {
		r.Use(middleware.RequestLogging(cfg.Logger))
	}
	if cfg.Metrics != nil {
		r.Use(middleware.RequestMetrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		r.Handle("/metrics", cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		if cfg.MatchHandler != nil {
			api.Route("/match", func(match chi.Router) {
				match.Post("/rank", cfg.MatchHandler.Rank)
				match.Post("/duplicate-check", cfg.MatchHandler.DuplicateCheck)
			})
		}
		if cfg.StatisticsHandler != nil {
			api.Get("/statistics/location", cfg.StatisticsHandler.LocationStats)
			api.Post("/statistics/location", cfg.StatisticsHandler.LocationStatsQuery)
		}
		if cfg.CorpusHandler != nil {
			api.Get("/corpus", cfg.CorpusHandler.Snapshot)
			api.Post("/corpus/refresh", cfg.CorpusHandler.Refresh)
		}
	})

	return r
}
