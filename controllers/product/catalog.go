package product

import (
	"acczen/database"
	"acczen/helpers"
	"acczen/models"

	"github.com/gofiber/fiber/v2"
)

func List(c *fiber.Ctx) error {
	query := database.DB.Where("is_active = true")

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if search := c.Query("q"); search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}

	var products []models.Product
	if err := query.Order("name").Find(&products).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_LOAD_PRODUCTS")
	}

	return helpers.JSONSuccess(c, "OK", products)
}

func Get(c *fiber.Ctx) error {
	var product models.Product
	if err := database.DB.Where("id = ? AND is_active = true", c.Params("id")).
		First(&product).Error; err != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "PRODUCT_NOT_FOUND")
	}

	return helpers.JSONSuccess(c, "OK", product)
}
