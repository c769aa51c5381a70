package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/securehire-auth/internal/api/http/handlers"
	"github.com/spec-kit/securehire-auth/internal/auth"
	"github.com/spec-kit/securehire-auth/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Session *auth.SessionFilter
	Metrics *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Probes and metrics are mounted ahead of
// the session filter; everything after it sees the established principal.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	app.Use(cfg.Session.Handle)

	app.Post("/register", cfg.Auth.Register)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/load", cfg.Auth.Load)
	authGroup.Post("/logout", auth.RequireAuthenticated(), cfg.Auth.Logout)
}
