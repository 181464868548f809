// Package api exposes the prediction service over HTTP. Routing and request
// validation live here; all domain logic stays behind the service facade.
package api

import (
	"net/http"

	"github.com/causewaylabs/crossingd/internal/config"
	"github.com/causewaylabs/crossingd/internal/prediction"
	"github.com/causewaylabs/crossingd/pkg/logger"
	"github.com/go-chi/chi/v5"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(service *prediction.Service, cfg *config.Config, log *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(service, cfg, log),
		middleware: NewMiddleware(log),
		config:     cfg,
		logger:     log.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	router.Route("/api/v1", func(router chi.Router) {
		// Prediction routes
		router.Post("/predict", r.handler.Predict)
		router.Post("/simulate", r.handler.Simulate)

		// Checkpoint wait estimate
		router.Get("/wait-time", r.handler.WaitTime)

		// Crowd-submitted actuals
		router.Post("/crossings", r.handler.SubmitCrossing)
		router.Get("/crossings", r.handler.RecentCrossings)
		router.Get("/stats", r.handler.StoreStats)

		// Health check
		router.Get("/health", r.handler.Health)

		// Configuration
		router.Get("/config", r.handler.GetConfig)
	})

	return router
}
