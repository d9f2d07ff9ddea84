package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/care-circle-auth/internal/api/http/handlers"
	"github.com/spec-kit/care-circle-auth/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	OTP            *handlers.OTPHandler
	Session        *handlers.SessionHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	authGroup := app.Group("/api/auth")
	authGroup.Post("/otp/send", cfg.OTP.Send)
	authGroup.Post("/otp/verify", cfg.OTP.Verify)

	authGroup.Get("/session", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated(), cfg.Session.Current)
}
