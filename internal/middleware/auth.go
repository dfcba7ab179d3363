package middleware

import (
	"strings"

	"github.com/faruque-tulsi/license-server/internal/util"

	"github.com/gofiber/fiber/v2"
)

// Auth guards admin routes with a bearer JWT. The admin username is stored
// in locals under "admin" for handlers that record created_by.
func Auth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization header",
			})
		}

		username, err := util.ValidateToken(tokenParts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals("admin", username)
		return c.Next()
	}
}
