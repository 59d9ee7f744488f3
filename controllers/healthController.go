package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"yellowpages-backend/store"
)

type HealthController struct {
	Store *store.VendorStore
	Now   func() time.Time
}

func NewHealthController(s *store.VendorStore) *HealthController {
	return &HealthController{Store: s, Now: time.Now}
}

func (hc *HealthController) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "BMP Yellow Pages API"})
}

// Health always answers 200; storage trouble is reported in the body.
func (hc *HealthController) Health(c *fiber.Ctx) error {
	body := fiber.Map{
		"status":             "healthy",
		"database":           "connected",
		"fallback_mode":      hc.Store.InFallback(),
		"degraded_responses": hc.Store.DegradedResponses(),
		"timestamp":          hc.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := hc.Store.Ping(c.UserContext()); err != nil {
		body["status"] = "unhealthy"
		body["database"] = "disconnected"
		body["error"] = "storage ping failed"
	}
	return c.JSON(body)
}
