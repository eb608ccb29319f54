// Package api serves the tag store over a read-only HTTP API.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pable/s2-analytics/internal/correlation"
	"github.com/pable/s2-analytics/internal/metrics"
	"github.com/pable/s2-analytics/internal/model"
	"github.com/pable/s2-analytics/internal/rolling"
	"github.com/pable/s2-analytics/internal/storage"
)

// Store is the read surface of *storage.DB the API needs.
type Store interface {
	correlation.TagSource
	Overview() (*model.Overview, error)
	ListMatches(limit int) ([]model.MatchSummary, error)
	TagCounts(q storage.TagQuery) (map[string]int, error)
	UsageTotals() (*storage.UsageTotals, error)
}

type Config struct {
	Store   Store
	Logger  *zap.SugaredLogger
	Metrics *metrics.Metrics
	// CORSOrigins defaults to every origin.
	CORSOrigins []string
	// Weapons is used by /usage when the request names none.
	Weapons []string
	Trend   rolling.Period
	// RateLimit is requests per second across all clients. 0 disables it.
	RateLimit float64
	Burst     int
}

type handler struct {
	store   Store
	engine  *correlation.Engine
	logger  *zap.SugaredLogger
	weapons []string
	trend   rolling.Period
}

// NewRouter builds the router. It starts no goroutines and opens no
// listeners, so tests can mount it on httptest.
func NewRouter(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observe(logger, m))
	if cfg.RateLimit > 0 {
		r.Use(limit(rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.Burst, 1))))
	}

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	h := &handler{
		store:   cfg.Store,
		engine:  correlation.NewEngine(cfg.Store),
		logger:  logger,
		weapons: cfg.Weapons,
		trend:   cfg.Trend,
	}

	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", m.Handler())
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/summary", h.summary)
		r.Get("/matches", h.matches)
		r.Get("/correlations", h.correlations)
		r.Get("/correlations/maps", h.correlationsPerMap)
		r.Get("/correlations/tags/{tag}", h.tagCorrelations)
		r.Get("/tags/counts", h.tagCounts)
		r.Get("/usage", h.usage)
	})
	return r
}

// observe logs each request and records it under its route pattern.
func observe(logger *zap.SugaredLogger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			elapsed := time.Since(start)
			m.ObserveRequest(route, status, elapsed)
			logger.Debugw("request",
				"method", r.Method,
				"route", route,
				"status", status,
				"duration", elapsed,
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func limit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				w.Header().Set("Retry-After", "1")
				errorResponse(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
