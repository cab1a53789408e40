// Package api provides the HTTP API for the CHMU weather station service.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lipelix/chmu-weather/internal/api/handler"
	"github.com/lipelix/chmu-weather/internal/api/middleware"
	"github.com/lipelix/chmu-weather/internal/station"
	"github.com/lipelix/chmu-weather/pkg/geo"
)

// StationService is the station configuration surface used by the API.
type StationService interface {
	handler.StationStore
	handler.SetupFormer
}

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version   string
	BuildTime string
	Logger    zerolog.Logger
	Metrics   *middleware.Metrics

	Stations StationService
	Registry handler.StationRegistry

	// Providers is optional.
	Providers handler.ProviderHealthSource

	// Auth protects write endpoints and the status endpoint. When nil those
	// endpoints are public.
	Auth middleware.TokenValidator

	// Home is the configured home location for station suggestions, may be nil.
	Home *geo.Coordinate

	RequireTLS bool
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware - order matters
	r.Use(middleware.RequestID) // Generate/propagate request ID first
	r.Use(middleware.Tracing()) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement
	r.Use(middleware.ContentTypeJSON)            // JSON content type

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsHandlerConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Stations:  cfg.Stations,
		Registry:  cfg.Registry,
		Providers: cfg.Providers,
	})
	setupHandler := handler.NewSetupHandler(cfg.Stations, cfg.Home)
	stationHandler := handler.NewStationHandler(cfg.Stations, cfg.Registry, cfg.Logger)

	authMiddleware := passthrough
	if cfg.Auth != nil {
		authMiddleware = middleware.Auth(cfg.Auth)
	}

	// Rate limits per endpoint category
	writeRateLimit := middleware.RateLimitBySubject(middleware.WriteRateLimit)  // 10 req/min
	setupRateLimit := middleware.RateLimitByIP(middleware.SetupRateLimit)       // 30 req/min
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit) // 100 req/min

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Setup fetches the remote catalog on every call.
		r.With(setupRateLimit).Get("/setup/stations", setupHandler.ListStations)

		r.Route("/stations", func(r chi.Router) {
			r.With(standardRateLimit).Get("/", stationHandler.ListStations)
			r.With(authMiddleware, writeRateLimit, middleware.RequireJSON).Post("/", stationHandler.CreateStation)

			r.Route("/{stationId}", func(r chi.Router) {
				r.With(standardRateLimit).Get("/", stationHandler.GetStation)
				r.With(standardRateLimit).Get("/reading", stationHandler.GetReading)
				r.With(standardRateLimit).Get("/sensors", stationHandler.GetSensors)
				r.With(authMiddleware, writeRateLimit).Delete("/", stationHandler.DeleteStation)
				r.With(authMiddleware, writeRateLimit).Post("/refresh", stationHandler.RefreshStation)
			})
		})
	})

	return r
}

func passthrough(next http.Handler) http.Handler {
	return next
}

var _ StationService = (*station.Service)(nil)
