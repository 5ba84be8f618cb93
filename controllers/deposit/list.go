package deposit

import (
	"acczen/database"
	"acczen/helpers"
	"acczen/models"

	"github.com/gofiber/fiber/v2"
)

func List(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(models.User)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "UNAUTHORIZED")
	}

	query := database.DB.Where("user_id = ?", user.ID)
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var deposits []models.Deposit
	if err := query.Order("created_at DESC").Limit(100).Find(&deposits).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_LOAD_DEPOSITS")
	}

	return helpers.JSONSuccess(c, "OK", deposits)
}
