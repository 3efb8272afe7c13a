package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/policy"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Tickets        *handlers.TicketsHandler
	Admin          *handlers.AdminHandler
	Reports        *handlers.ReportHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes. Role checks run in the router so callers
// without the role are rejected before any lookup; the services repeat them.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group("/api/v1")
	api.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "Welcome to the helpdesk API"})
	})
	api.Post("/signup", cfg.Users.Signup)
	api.Post("/login", cfg.Users.Login)
	api.Post("/signin", cfg.Users.Login)

	authn := cfg.AuthMiddleware.Handle

	tickets := api.Group("/tickets", authn)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Delete("/:id", auth.RequireAction(policy.ActionDeleteTicket), cfg.Tickets.DeleteTicket)
	tickets.Patch("/:id/process", auth.RequireAction(policy.ActionProcessTicket), cfg.Tickets.ProcessTicket)
	tickets.Patch("/:id/close", auth.RequireAction(policy.ActionCloseTicket), cfg.Tickets.CloseTicket)
	tickets.Patch("/:id/reset", auth.RequireAction(policy.ActionResetTicket), cfg.Tickets.ResetTicket)
	tickets.Post("/:id/comments", cfg.Tickets.CreateComment)
	tickets.Get("/:id/comments", cfg.Tickets.ListComments)

	reports := api.Group("/report", authn)
	reports.Get("/", auth.RequireAction(policy.ActionViewReport), cfg.Reports.Report)
	reports.Get("/download", auth.RequireAction(policy.ActionDownloadReport), cfg.Reports.Download)

	admin := api.Group("/admin", authn)
	admin.Get("/users", auth.RequireAction(policy.ActionListUsers), cfg.Admin.ListUsers)
	admin.Get("/users/:id", auth.RequireAction(policy.ActionViewUser), cfg.Admin.GetUser)
	admin.Patch("/users/:id/promote", auth.RequireAction(policy.ActionPromoteUser), cfg.Admin.Promote)
	admin.Patch("/users/:id/demote", auth.RequireAction(policy.ActionDemoteUser), cfg.Admin.Demote)
}
