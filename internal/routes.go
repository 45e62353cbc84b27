package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	v1 "visitra/api/v1"
	"visitra/internal/config"
)

// publicCORSConfig is the CORS setup shared by the public ingestion
// endpoints, which must accept cross-origin requests from any tracked site.
var publicCORSConfig = cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// MountAppRoutes mounts all application routes.
func MountAppRoutes(app *fiber.App, api *v1.API) {
	cfg := config.GetConfig()

	// Rate limiting only bites in production; in development and test it
	// would interfere with rapid-fire requests.
	conditionalRateLimiter := func(h fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return h(c)
			}
			return c.Next()
		}
	}

	// 70 req/min per IP handles legitimate tracking traffic while keeping
	// abuse out.
	publicRateLimiter := conditionalRateLimiter(limiter.New(limiter.Config{
		Max:        70,
		Expiration: time.Minute,
	}))

	// Health check endpoint
	app.Get("/_health", healthHandler)
	app.Head("/_health", healthHandler)

	// === PUBLIC INGESTION ROUTES ===
	// CORS runs first so rejected requests still carry CORS headers.
	public := app.Group("/x/api/v1", cors.New(publicCORSConfig), publicRateLimiter)
	public.Post("/events", api.CreateEventHandler)
	public.Options("/events", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	// === DASHBOARD API ROUTES ===
	dashboard := app.Group("/api/v1")
	dashboard.Post("/sites", api.CreateSiteHandler)
	dashboard.Get("/sites", api.ListSitesHandler)
	dashboard.Get("/sites/:id", api.GetSiteHandler)
	dashboard.Get("/sites/:id/stats", api.GetStatsHandler)
	dashboard.Get("/sites/:id/realtime", api.GetRealtimeHandler)
	dashboard.Get("/sites/:id/goals/:goalID/conversions", api.GetConversionsHandler)
}

func healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
