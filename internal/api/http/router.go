package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Assignments    *handlers.AssignmentsHandler
	Collaboration  *handlers.CollaborationHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireRole())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Patch("/:id", cfg.Tickets.UpdateTicket)
	tickets.Post("/:id/messages", cfg.Tickets.AddMessage)
	tickets.Get("/:id/messages", cfg.Tickets.ListMessages)
	tickets.Get("/:id/activities", cfg.Tickets.ListActivities)
	tickets.Get("/:id/collaboration", cfg.Collaboration.GetSnapshot)

	tickets.Get("/:id/assignments", cfg.Assignments.ListAssignments)
	tickets.Put("/:id/assignments", auth.RequireRole(domain.RoleAdmin), cfg.Assignments.SetAssignments)
	tickets.Delete("/:id/assignments/:technicianId", auth.RequireRole(domain.RoleAdmin), cfg.Assignments.RemoveAssignment)
	tickets.Put("/:id/responsible", auth.RequireRole(domain.RoleAdmin, domain.RoleTechnician), cfg.Assignments.SetResponsible)
	tickets.Post("/:id/assign", auth.RequireRole(domain.RoleAdmin), cfg.Assignments.AssignTicket)

	tickets.Put("/:id/work", auth.RequireRole(domain.RoleTechnician), cfg.Collaboration.RecordWork)
	tickets.Put("/:id/state", auth.RequireRole(domain.RoleTechnician), cfg.Collaboration.UpdateState)

	assignments := app.Group("/assignments", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	assignments.Post("/run", cfg.Assignments.AssignBatch)
	assignments.Get("/queue", cfg.Assignments.ListQueue)
}
