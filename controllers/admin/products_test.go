package admin_test

import (
	"encoding/json"
	"fmt"
	"testing"

	"acczen/database"
	"acczen/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateProduct_PartialPatchLeavesStockAlone(t *testing.T) {
	app := setupApp(t)
	token := createAdmin(t)

	product := models.Product{
		Name:       "Steam Account",
		Slug:       "steam-account",
		Price:      50000,
		Stock:      42,
		KioskToken: "kiosk-1",
		IsActive:   true,
	}
	require.NoError(t, database.DB.Create(&product).Error)

	_, env := request(t, app, "PATCH", fmt.Sprintf("/api/admin/products/%d", product.ID), token,
		fiber.Map{"price": 60000})
	require.True(t, env.Success, "message: %s", env.Message)

	var reloaded models.Product
	require.NoError(t, database.DB.First(&reloaded, product.ID).Error)
	assert.Equal(t, int64(42), reloaded.Stock)
	assert.Equal(t, float64(60000), reloaded.Price)

	var body models.Product
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, float64(60000), body.Price, "response must carry the updated product")
	assert.Equal(t, int64(42), body.Stock)
}

func TestUpdateProduct_ExplicitZeroStockApplied(t *testing.T) {
	app := setupApp(t)
	token := createAdmin(t)

	product := models.Product{
		Name:       "Gmail Account",
		Slug:       "gmail-account",
		Price:      20000,
		Stock:      5,
		KioskToken: "kiosk-2",
		IsActive:   true,
	}
	require.NoError(t, database.DB.Create(&product).Error)

	_, env := request(t, app, "PATCH", fmt.Sprintf("/api/admin/products/%d", product.ID), token,
		fiber.Map{"stock": 0})
	require.True(t, env.Success, "message: %s", env.Message)

	var reloaded models.Product
	require.NoError(t, database.DB.First(&reloaded, product.ID).Error)
	assert.Equal(t, int64(0), reloaded.Stock)
}

func TestUpdateProduct_NegativeStockRejected(t *testing.T) {
	app := setupApp(t)
	token := createAdmin(t)

	product := models.Product{
		Name:       "Proxy Pack",
		Slug:       "proxy-pack",
		Price:      30000,
		Stock:      7,
		KioskToken: "kiosk-3",
		IsActive:   true,
	}
	require.NoError(t, database.DB.Create(&product).Error)

	_, env := request(t, app, "PATCH", fmt.Sprintf("/api/admin/products/%d", product.ID), token,
		fiber.Map{"stock": -3})

	assert.False(t, env.Success)
	assert.Equal(t, "INVALID_STOCK", env.Message)

	var reloaded models.Product
	require.NoError(t, database.DB.First(&reloaded, product.ID).Error)
	assert.Equal(t, int64(7), reloaded.Stock)
}
