package http

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/triage-service/internal/api/http/handlers"
	"github.com/spec-kit/triage-service/internal/auth"
	"github.com/spec-kit/triage-service/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Auth    *handlers.AuthHandler
	Tickets *handlers.TicketsHandler
	Users   *handlers.UsersHandler
	Gate    *auth.Gate
	Limiter *ratelimit.Limiter
}

// NewFiberConfig returns the server configuration shared by main and tests.
func NewFiberConfig(appName string, errorHandler fiber.ErrorHandler) fiber.Config {
	return fiber.Config{
		AppName:      appName,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: errorHandler,
		BodyLimit:    1 << 20,
	}
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/sign-up", cfg.Limiter.Middleware("sign-up"), cfg.Auth.SignUp)
	authGroup.Post("/sign-in", cfg.Limiter.Middleware("sign-in"), cfg.Auth.SignIn)
	authGroup.Get("/me", cfg.Gate.Require(auth.AnyAuthenticated...), cfg.Auth.Me)

	tickets := app.Group("/tickets")
	tickets.Post("/", cfg.Gate.Require(auth.UsersOnly...), cfg.Tickets.Create)
	tickets.Get("/", cfg.Gate.Require(auth.AllRoles...), cfg.Tickets.List)
	tickets.Get("/:id", cfg.Gate.Require(auth.AllRoles...), cfg.Tickets.Get)
	tickets.Patch("/:id/assign", cfg.Gate.Require(auth.AdminsOnly...), cfg.Tickets.Assign)
	tickets.Patch("/:id/status", cfg.Gate.Require(auth.Staff...), cfg.Tickets.UpdateStatus)

	users := app.Group("/users", cfg.Gate.Require(auth.Staff...))
	users.Get("/", cfg.Users.List)
	users.Get("/:id", cfg.Users.Get)

	app.Get("/admin/health", cfg.Gate.Require(auth.AdminsOnly...), cfg.Health.Admin)
}
