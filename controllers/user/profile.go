package user

import (
	"acczen/database"
	"acczen/helpers"
	"acczen/models"

	"github.com/gofiber/fiber/v2"
)

func Profile(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(models.User)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "UNAUTHORIZED")
	}

	return helpers.JSONSuccess(c, "OK", fiber.Map{
		"id":                  user.ID,
		"email":               user.Email,
		"role":                user.Role,
		"balance":             helpers.FormatFloat(user.Balance, 2),
		"discount_percentage": user.DiscountPercentage,
		"loyalty_points":      user.LoyaltyPoints,
		"loyalty_tier":        user.LoyaltyTier,
	})
}

func Transactions(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(models.User)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "UNAUTHORIZED")
	}

	var transactions []models.Transaction
	if err := database.DB.Where("user_id = ?", user.ID).
		Order("created_at DESC").Limit(100).Find(&transactions).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_LOAD_TRANSACTIONS")
	}

	return helpers.JSONSuccess(c, "OK", transactions)
}
