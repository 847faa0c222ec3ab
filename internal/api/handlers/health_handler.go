package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type HealthHandler struct {
	cacheEnabled   bool
	asyncEnabled   bool
	redisConnected func(c *fiber.Ctx) bool
}

// NewHealthHandler takes a probe for redis reachability; pass nil when the
// deployment runs without redis.
func NewHealthHandler(cacheEnabled, asyncEnabled bool, redisConnected func(c *fiber.Ctx) bool) *HealthHandler {
	return &HealthHandler{
		cacheEnabled:   cacheEnabled,
		asyncEnabled:   asyncEnabled,
		redisConnected: redisConnected,
	}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	redisUp := false
	if h.redisConnected != nil {
		redisUp = h.redisConnected(c)
	}

	return c.JSON(fiber.Map{
		"status":          "healthy",
		"cache_enabled":   h.cacheEnabled,
		"async_enabled":   h.asyncEnabled,
		"redis_connected": redisUp,
	})
}

// Root describes the service for anyone poking the base URL.
func Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "document-intelligence-backend",
		"docs":    "/api/health",
	})
}
