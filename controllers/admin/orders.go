package admin

import (
	"log"

	"acczen/database"
	"acczen/helpers"
	"acczen/models"
	"acczen/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func ListOrders(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Order{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if userID := c.Query("user_id"); userID != "" {
		query = query.Where("user_id = ?", userID)
	}

	var orders []models.Order
	if err := query.Preload("Items").Order("created_at DESC").Limit(200).Find(&orders).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_LOAD_ORDERS")
	}
	return helpers.JSONSuccess(c, "OK", orders)
}

type OrderStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

var validStatusChange = map[string]map[string]bool{
	models.OrderPending:   {models.OrderCompleted: true, models.OrderCancelled: true},
	models.OrderCompleted: {models.OrderRefunded: true},
}

// UpdateOrderStatus moves an order through its lifecycle. A refund credits
// the full order amount back with a ledger row, atomically with the status
// change.
func UpdateOrderStatus(c *fiber.Ctx) error {
	var req OrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	var order models.Order
	if err := database.DB.First(&order, c.Params("id")).Error; err != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "ORDER_NOT_FOUND")
	}

	if !validStatusChange[order.Status][req.Status] {
		return helpers.JSONError(c, "INVALID_STATUS_CHANGE")
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var current models.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, order.ID).Error; err != nil {
			return err
		}
		if !validStatusChange[current.Status][req.Status] {
			return gorm.ErrInvalidTransaction
		}

		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("status", req.Status).Error; err != nil {
			return err
		}

		if req.Status == models.OrderRefunded {
			var user models.User
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				First(&user, order.UserID).Error; err != nil {
				return err
			}

			note := req.Note
			if note == "" {
				note = "Refund order " + order.OrderCode
			}
			if _, err := services.ApplyBalanceDelta(tx, &user, order.TotalAmount,
				models.TrxRefund, uuid.New().String(), note); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		log.Printf("[ADMIN] ❌ order %s status change to %s failed: %v", order.OrderCode, req.Status, err)
		return helpers.JSONError(c, "FAILED_TO_UPDATE_ORDER")
	}

	log.Printf("[ADMIN] ✅ order %s status %s → %s", order.OrderCode, order.Status, req.Status)
	return helpers.JSONSuccess(c, "Order updated", fiber.Map{
		"order_id": order.ID,
		"status":   req.Status,
	})
}
