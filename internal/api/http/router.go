package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/incident-service/internal/api/http/handlers"
	"github.com/spec-kit/incident-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Incidents      *handlers.IncidentsHandler
	CommonProblems *handlers.CommonProblemsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Health.Metrics)

	incidents := app.Group("/incidents")
	incidents.Post("", cfg.Incidents.Create)
	incidents.Get("", cfg.AuthMiddleware.Handle, cfg.Incidents.List)
	incidents.Get("/fields", cfg.Incidents.Fields)
	incidents.Get("/tracking/:code", cfg.Incidents.GetByTrackingCode)
	incidents.Get("/:id", cfg.Incidents.Get)
	incidents.Get("/:id/logs", cfg.Incidents.Logs)
	incidents.Put("/:id/resolve", cfg.Incidents.Resolve)
	incidents.Put("/:id/escalate", cfg.Incidents.Escalate)
	incidents.Post("/:id/bill", cfg.Incidents.Bill)

	problems := app.Group("/common-problems")
	problems.Post("", cfg.CommonProblems.Register)
	problems.Get("", cfg.CommonProblems.List)
}
