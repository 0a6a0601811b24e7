// Package main provides the API router setup.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/spherical-ai/spherical/libs/sales-analytics/cmd/sales-analytics-api/handlers"
	"github.com/spherical-ai/spherical/libs/sales-analytics/cmd/sales-analytics-api/middleware"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/app"
	"github.com/spherical-ai/spherical/libs/sales-analytics/internal/observability"
)

// AppConfig holds application configuration.
type AppConfig struct {
	RequestTimeout    time.Duration
	MaxUploadBytes    int64
	RequestsPerSecond float64
	Burst             int
	AllowedOrigins    []string
	AuthConfig        middleware.AuthConfig
}

// DefaultAppConfig returns default configuration values.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		RequestTimeout: 60 * time.Second,
		MaxUploadBytes: 50 << 20,
		AllowedOrigins: []string{"*"},
		AuthConfig: middleware.AuthConfig{
			Enabled:       false,
			DefaultTenant: "dev",
		},
	}
}

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *AppConfig, svc *app.Services) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(middleware.Trace)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	// Health checks (unauthenticated)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","service":"sales-analytics"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		w.Header().Set("Content-Type", "application/json")
		if err := svc.Store.Ping(ctx); err != nil {
			logger.Warn().Err(err).Msg("readiness check failed")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})

	analysesHandler := handlers.NewAnalysesHandler(logger, svc.Analyzer, svc.Store, svc.Analyses, cfg.MaxUploadBytes)
	limiter := middleware.NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.AuthConfig))
		r.Use(limiter.Handler)

		r.Route("/analyses", func(r chi.Router) {
			r.Post("/", analysesHandler.Create)
			r.Get("/", analysesHandler.List)
			r.Get("/{analysisId}", analysesHandler.Get)
			r.Delete("/{analysisId}", analysesHandler.Delete)
		})
	})

	return r
}
