package server

import (
	"net/http"

	"github.com/cortexai/orderlens/internal/config"
	"github.com/cortexai/orderlens/internal/handler"
	"github.com/cortexai/orderlens/internal/middleware"
	"github.com/cortexai/orderlens/internal/security"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

// Routes builds the HTTP router. health may hold nil checkers for disabled
// dependencies.
func Routes(cfg *config.Config, answerer handler.Answerer, health map[string]handler.HealthChecker) http.Handler {
	healthH := handler.NewHealthHandler(health)
	askH := handler.NewAskHandler(answerer, security.NewPromptValidator(cfg.MaxPromptLength))

	if cfg.EnableAuth && len(cfg.APIKeys) == 0 {
		log.Warn().Msg("auth enabled but no API keys configured - all API requests will be rejected")
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(log.Logger))
	r.Use(middleware.Recovery)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.CORSOrigins)))

	// Public routes
	r.Get("/health", healthH.Health)
	r.Get("/", healthH.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, cfg.APIKeyHeader))
		if cfg.EnableAuth {
			r.Use(middleware.Auth(cfg.APIKeys, cfg.APIKeyHeader))
		}

		r.Post("/ask", askH.Ask)
		r.Route(cfg.APIPrefix, func(r chi.Router) {
			r.Post("/ask", askH.Ask)
		})
	})

	return r
}
