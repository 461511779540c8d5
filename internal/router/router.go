package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/makerlabExp/pickupConnect/internal/config"
	"github.com/makerlabExp/pickupConnect/internal/handler"
	"github.com/makerlabExp/pickupConnect/internal/middleware"
	"github.com/makerlabExp/pickupConnect/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler    *handler.AuthHandler
	PickupHandler  *handler.PickupHandler
	FeedHandler    *handler.FeedHandler
	SessionHandler *handler.SessionHandler
	AdminHandler   *handler.AdminHandler
	UploadHandler  *handler.UploadHandler
	SetupHandler   *handler.SetupHandler
	JWTMiddleware  fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	// Logins are rate limited per IP; everything else requires a token.
	if deps.AuthHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("login", 20, time.Minute))
		deps.AuthHandler.Register(auth)
	}

	if deps.SetupHandler != nil {
		setup := api.Group("/setup", middleware.RateLimit("setup", 10, time.Minute))
		deps.SetupHandler.Register(setup)
	}

	if deps.PickupHandler != nil {
		pickups := api.Group("/pickups", jwtMiddleware)
		deps.PickupHandler.Register(pickups)
	}

	if deps.FeedHandler != nil {
		feed := api.Group("/feed", jwtMiddleware)
		deps.FeedHandler.Register(feed)
	}

	if deps.SessionHandler != nil {
		sessions := api.Group("/sessions", jwtMiddleware)
		deps.SessionHandler.Register(sessions)
	}

	if deps.AdminHandler != nil {
		admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(middleware.RoleAdmin))
		deps.AdminHandler.Register(admin)

		if deps.UploadHandler != nil {
			uploads := admin.Group("/uploads")
			deps.UploadHandler.Register(uploads)
		}
	}
}
