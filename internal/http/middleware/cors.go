package middleware

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CORS allows the SPA to call the API from the given origins. With no origins
// every origin is allowed.
func CORS(origins ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		origin := c.Get(fiber.HeaderOrigin)
		switch {
		case len(origins) == 0:
			c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		case origin != "" && slices.Contains(origins, origin):
			c.Set(fiber.HeaderAccessControlAllowOrigin, origin)
			c.Vary(fiber.HeaderOrigin)
		}

		c.Set(fiber.HeaderAccessControlAllowMethods, strings.Join([]string{
			fiber.MethodGet, fiber.MethodPost, fiber.MethodDelete, fiber.MethodOptions,
		}, ", "))
		c.Set(fiber.HeaderAccessControlAllowHeaders, "Origin, Content-Type, Accept, Authorization, "+RequestIDHeader)
		c.Set(fiber.HeaderAccessControlExposeHeaders, "Content-Length, Content-Type, Content-Disposition, "+RequestIDHeader)
		c.Set(fiber.HeaderAccessControlMaxAge, "86400")

		if c.Method() == fiber.MethodOptions {
			return c.SendStatus(fiber.StatusNoContent)
		}

		return c.Next()
	}
}
