package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/approval-service/internal/api/http/handlers"
	"github.com/spec-kit/approval-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Categories     *handlers.CategoriesHandler
	TeamMembers    *handlers.TeamMembersHandler
	Tickets        *handlers.TicketsHandler
	Approvals      *handlers.ApprovalsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	// Approval links arrive from email without a session; the signed token
	// in the path is the credential.
	app.Get("/approve/:token/:action", cfg.Approvals.Act)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Users.Register)
	authGroup.Post("/login", cfg.Users.Login)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireUser(), cfg.Users.ChangePassword)

	admin := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireAdmin())
	admin.Post("/categories", cfg.Categories.Create)
	admin.Put("/categories/:id", cfg.Categories.Update)
	admin.Get("/categories", cfg.Categories.List)
	admin.Post("/team-members", cfg.TeamMembers.Create)
	admin.Get("/team-members", cfg.TeamMembers.List)
	admin.Patch("/team-members/:id/availability", cfg.TeamMembers.SetAvailability)
	admin.Patch("/tickets/:id/status", cfg.Tickets.UpdateStatus)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireUser())
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Patch("/:id", cfg.Tickets.Edit)
	tickets.Post("/:id/cancel", cfg.Tickets.Cancel)
}
