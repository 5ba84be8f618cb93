package middlewares

import (
	"strings"

	"acczen/database"
	"acczen/helpers"
	"acczen/models"

	"github.com/gofiber/fiber/v2"
)

func UserAuthMiddleware(c *fiber.Ctx) error {
	header := c.Get("Authorization")
	if header == "" {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "UNAUTHORIZED")
	}

	tokenString := strings.TrimPrefix(header, "Bearer ")
	if tokenString == header || tokenString == "" {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "UNAUTHORIZED")
	}

	claims, err := helpers.ParseToken(tokenString)
	if err != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_TOKEN")
	}

	var user models.User
	if err := database.DB.Where("id = ? AND is_active = true", claims.UserID).First(&user).Error; err != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_TOKEN")
	}

	c.Locals("user", user)
	return c.Next()
}
