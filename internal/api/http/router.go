package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deptforge/agent-departments/internal/api/http/handlers"
	"github.com/deptforge/agent-departments/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Users          *handlers.UsersHandler
	Departments    *handlers.DepartmentsHandler
	Agents         *handlers.AgentsHandler
	Messages       *handlers.MessagesHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/users/register", cfg.Users.Register)
	authGroup.Post("/users/login", cfg.Users.Login)

	protected := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireActiveUser())

	protected.Get("/catalog/departments", cfg.Departments.Catalog)
	protected.Delete("/session", cfg.Departments.EndSession)

	// Static selection routes are registered before /departments/:id.
	protected.Get("/departments/selection", cfg.Departments.Selection)
	protected.Post("/departments/selection/toggle", cfg.Departments.ToggleSelection)
	protected.Post("/departments/selection/commit", cfg.Departments.CommitSelection)
	protected.Delete("/departments/selection", cfg.Departments.ClearSelection)

	protected.Get("/departments", cfg.Departments.List)
	protected.Post("/departments", cfg.Departments.Add)
	protected.Delete("/departments/:id", cfg.Departments.Remove)

	protected.Put("/departments/:id/agent", cfg.Agents.Assign)
	protected.Get("/departments/:id/agent", cfg.Agents.Get)

	protected.Post("/departments/:id/messages", cfg.Messages.Send)
	protected.Get("/departments/:id/messages", cfg.Messages.History)
	protected.Post("/broadcast", cfg.Messages.Broadcast)
}
