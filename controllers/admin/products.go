package admin

import (
	"log"
	"strings"

	"acczen/database"
	"acczen/helpers"
	"acczen/models"
	"acczen/providers/taphoammo"
	"acczen/services"

	"github.com/gofiber/fiber/v2"
)

type ProductRequest struct {
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	SalePrice   *float64 `json:"sale_price"`
	Stock       *int64   `json:"stock"`
	KioskToken  string   `json:"kiosk_token"`
	IsActive    *bool    `json:"is_active"`
}

func ListProducts(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Product{})
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var products []models.Product
	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_LOAD_PRODUCTS")
	}
	return helpers.JSONSuccess(c, "OK", products)
}

func CreateProduct(c *fiber.Ctx) error {
	var req ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if req.Name == "" || req.Price <= 0 {
		return helpers.JSONError(c, "NAME_AND_PRICE_REQUIRED")
	}
	if req.Slug == "" {
		req.Slug = slugify(req.Name)
	}

	product := models.Product{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		SalePrice:   req.SalePrice,
		KioskToken:  req.KioskToken,
		IsActive:    true,
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	if err := database.DB.Create(&product).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_CREATE_PRODUCT")
	}
	return helpers.JSONSuccess(c, "Product created", product)
}

func UpdateProduct(c *fiber.Ctx) error {
	var product models.Product
	if err := database.DB.First(&product, c.Params("id")).Error; err != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "PRODUCT_NOT_FOUND")
	}

	var req ProductRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	updates := map[string]any{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Slug != "" {
		updates["slug"] = req.Slug
	}
	if req.Description != "" {
		updates["description"] = req.Description
	}
	if req.Category != "" {
		updates["category"] = req.Category
	}
	if req.Price > 0 {
		updates["price"] = req.Price
	}
	if req.SalePrice != nil {
		updates["sale_price"] = *req.SalePrice
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return helpers.JSONError(c, "INVALID_STOCK")
		}
		updates["stock"] = *req.Stock
	}
	if req.KioskToken != "" {
		updates["kiosk_token"] = req.KioskToken
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if err := database.DB.Model(&product).Updates(updates).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_UPDATE_PRODUCT")
	}
	if err := database.DB.First(&product, product.ID).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_LOAD_PRODUCTS")
	}
	return helpers.JSONSuccess(c, "Product updated", product)
}

func DeleteProduct(c *fiber.Ctx) error {
	if err := database.DB.Delete(&models.Product{}, c.Params("id")).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_DELETE_PRODUCT")
	}
	return helpers.JSONSuccess(c, "Product deleted", nil)
}

type ImportRequest struct {
	KioskToken string  `json:"kiosk_token"`
	Category   string  `json:"category"`
	Markup     float64 `json:"markup_percentage"`
}

// ImportProducts pulls a kiosk's products from the reseller and upserts
// them into the catalog, applying an optional markup over reseller prices.
func ImportProducts(c *fiber.Ctx) error {
	var req ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if req.KioskToken == "" {
		return helpers.JSONError(c, "KIOSK_TOKEN_REQUIRED")
	}

	kioskProducts, err := taphoammo.NewClient().GetProducts(req.KioskToken)
	if err != nil {
		log.Printf("[ADMIN] ❌ product import failed for kiosk %s: %v", req.KioskToken, err)
		return helpers.JSONError(c, "IMPORT_FAILED")
	}

	imported := 0
	for _, kp := range kioskProducts {
		token := kp.KioskToken
		if token == "" {
			token = req.KioskToken
		}
		price := kp.Price * (1 + req.Markup/100.0)

		var existing models.Product
		err := database.DB.Where("kiosk_token = ? AND name = ?", token, kp.Name).First(&existing).Error
		if err == nil {
			if err := database.DB.Model(&existing).Updates(map[string]any{
				"stock": kp.Stock,
				"price": price,
			}).Error; err != nil {
				log.Printf("[ADMIN] ❌ failed to update imported product %s: %v", kp.Name, err)
			}
			continue
		}

		product := models.Product{
			Name:       kp.Name,
			Slug:       slugify(kp.Name),
			Category:   req.Category,
			Price:      price,
			Stock:      kp.Stock,
			KioskToken: token,
			IsActive:   true,
		}
		if err := database.DB.Create(&product).Error; err != nil {
			log.Printf("[ADMIN] ❌ failed to import product %s: %v", kp.Name, err)
			continue
		}
		imported++
	}

	log.Printf("[ADMIN] ✅ imported %d products from kiosk %s", imported, req.KioskToken)
	return helpers.JSONSuccess(c, "Import completed", fiber.Map{
		"imported": imported,
		"total":    len(kioskProducts),
	})
}

// SyncProductStock refreshes one product's stock from the reseller.
func SyncProductStock(c *fiber.Ctx) error {
	var product models.Product
	if err := database.DB.First(&product, c.Params("id")).Error; err != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "PRODUCT_NOT_FOUND")
	}
	if product.KioskToken == "" {
		return helpers.JSONError(c, "INVALID_PRODUCT_CONFIG")
	}

	stock, err := taphoammo.NewClient().GetStock(product.KioskToken)
	if err != nil {
		return helpers.JSONError(c, "STOCK_SYNC_FAILED")
	}

	if err := database.DB.Model(&product).Update("stock", stock.Stock).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_UPDATE_PRODUCT")
	}

	return helpers.JSONSuccess(c, "Stock synced", fiber.Map{
		"product_id": product.ID,
		"stock":      stock.Stock,
	})
}

// EnqueueStockSync schedules a full catalog stock refresh via the job queue.
func EnqueueStockSync(c *fiber.Ctx) error {
	if err := services.EnqueueSyncJob(database.DB, models.JobStockSync, fiber.Map{}); err != nil {
		return helpers.JSONError(c, "FAILED_TO_ENQUEUE_JOB")
	}
	return helpers.JSONSuccess(c, "Stock sync scheduled", nil)
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Join(strings.Fields(slug), "-")
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return -1
	}, slug)
}
