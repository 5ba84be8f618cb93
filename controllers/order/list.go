package order

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

	var orders []models.Order
	if err := query.Preload("Items").Order("created_at DESC").Limit(100).Find(&orders).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_LOAD_ORDERS")
	}

	return helpers.JSONSuccess(c, "OK", orders)
}

func Get(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(models.User)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "UNAUTHORIZED")
	}

	var order models.Order
	if err := database.DB.Preload("Items").
		Where("id = ? AND user_id = ?", c.Params("id"), user.ID).
		First(&order).Error; err != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "ORDER_NOT_FOUND")
	}

	return helpers.JSONSuccess(c, "OK", order)
}
