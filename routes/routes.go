package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"gorm.io/gorm"

	"yellowpages-backend/controllers"
	"yellowpages-backend/middlewares"
	"yellowpages-backend/store"
)

// Deps carries what the handlers need.
type Deps struct {
	DB             *gorm.DB
	Store          *store.VendorStore
	AdminJWTSecret string
	DBTimeout      time.Duration
}

// Register wires all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	vendors := controllers.NewVendorController(deps.Store)
	health := controllers.NewHealthController(deps.Store)
	status := controllers.NewStatusController(deps.DB, deps.DBTimeout)

	api := app.Group("/api")

	// Idempotency guard for retried mutations
	api.Use(middlewares.Idempotency(deps.DB, deps.DBTimeout))

	api.Get("/", health.Root)
	api.Get("/health", health.Health)

	api.Post("/status", status.CreateStatusCheck)
	api.Get("/status", status.GetStatusChecks)

	// Seed is registered before /:id routes
	api.Post("/vendors/seed", middlewares.RequireAdmin(deps.AdminJWTSecret), vendors.SeedVendors)

	api.Post("/vendors", vendors.CreateVendor)
	api.Get("/vendors", vendors.GetVendors)
	api.Get("/vendors/:id", vendors.GetVendor)
	api.Put("/vendors/:id", vendors.UpdateVendor)
	api.Delete("/vendors/:id", vendors.DeleteVendor)
}

// AppConfig holds the HTTP stack settings.
type AppConfig struct {
	BodyLimit       int
	AllowedOrigins  string
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// NewApp builds the Fiber app with the global middleware chain and all routes.
func NewApp(deps Deps, cfg AppConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          middlewares.ErrorHandler,
		BodyLimit:             cfg.BodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middlewares.RequestLog())

	// ---- CORS
	allowedOrigins := cfg.AllowedOrigins
	if allowedOrigins == "" {
		allowedOrigins = "*"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowCredentials: false, // using Bearer tokens, not cookies
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Idempotency-Key",
		ExposeHeaders:    "X-Fallback-Mode, X-Request-ID, Retry-After",
	}))

	// ---- Global rate limiter (default KeyGenerator = client IP)
	if cfg.RateLimitMax > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimitMax,
			Expiration: cfg.RateLimitWindow,
		}))
	}

	Register(app, deps)
	return app
}
