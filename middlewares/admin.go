package middlewares

import (
	"acczen/helpers"
	"acczen/models"

	"github.com/gofiber/fiber/v2"
)

// AdminAuthMiddleware must run after UserAuthMiddleware.
func AdminAuthMiddleware(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(models.User)
	if !ok || user.Role != models.RoleAdmin {
		return helpers.JSONErrorStatus(c, fiber.StatusForbidden, "UNAUTHORIZED")
	}
	return c.Next()
}
