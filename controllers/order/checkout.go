package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"acczen/database"
	"acczen/helpers"
	"acczen/metrics"
	"acczen/models"
	"acczen/providers/taphoammo"
	"acczen/retry"
	"acczen/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CheckoutItem struct {
	ProductID uint  `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type CheckoutRequest struct {
	Items     []CheckoutItem `json:"items"`
	Promotion string         `json:"promotion"`
}

type purchasedItem struct {
	product  models.Product
	quantity int64
	price    float64
	buy      *taphoammo.BuyResult
}

// Checkout validates stock and balance, fulfills each line against the
// reseller and records order, items, stock decrement, balance debit and
// ledger row in a single database transaction. Validation failures write
// nothing; a rollback after a successful reseller buy is logged with the
// supplier order id for reconciliation.
func Checkout(c *fiber.Ctx) error {
	authUser, ok := c.Locals("user").(models.User)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "UNAUTHORIZED")
	}

	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if len(req.Items) == 0 {
		return helpers.JSONError(c, "ITEMS_REQUIRED")
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return helpers.JSONError(c, "INVALID_QUANTITY")
		}
	}

	// Collapse duplicate lines for the same product so stock is validated
	// against the summed quantity.
	lines := make([]CheckoutItem, 0, len(req.Items))
	lineIndex := map[uint]int{}
	for _, item := range req.Items {
		if i, ok := lineIndex[item.ProductID]; ok {
			lines[i].Quantity += item.Quantity
			continue
		}
		lineIndex[item.ProductID] = len(lines)
		lines = append(lines, item)
	}

	client := taphoammo.NewClient()
	breaker := services.NewCircuitBreaker("taphoammo")

	failCode := "ORDER_CREATION_ERROR"
	var created models.Order

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, authUser.ID).Error; err != nil {
			failCode = "UNAUTHORIZED"
			return err
		}

		// Validate every line before touching anything external.
		purchases := make([]purchasedItem, 0, len(lines))
		originalAmount := 0.0
		for _, item := range lines {
			var product models.Product
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("id = ? AND is_active = true", item.ProductID).
				First(&product).Error; err != nil {
				failCode = "PRODUCT_NOT_FOUND"
				return err
			}
			if product.KioskToken == "" {
				failCode = "INVALID_PRODUCT_CONFIG"
				return errors.New(failCode)
			}
			if item.Quantity > product.Stock {
				failCode = "INSUFFICIENT_STOCK"
				return errors.New(failCode)
			}

			price := product.EffectivePrice()
			originalAmount += price * float64(item.Quantity)
			purchases = append(purchases, purchasedItem{
				product:  product,
				quantity: item.Quantity,
				price:    price,
			})
		}

		discountAmount := originalAmount * user.DiscountPercentage / 100.0
		totalAmount := originalAmount - discountAmount

		if user.Balance < totalAmount {
			failCode = "INSUFFICIENT_FUNDS"
			return errors.New(failCode)
		}

		// Fulfill against the reseller. The buys happen before the local
		// writes commit; supplier order ids are logged below if we roll back.
		for i := range purchases {
			p := &purchases[i]
			_, err := retry.Execute(context.Background(), func(ctx context.Context) error {
				var err error
				p.buy, err = client.BuyProducts(p.product.KioskToken, p.quantity, req.Promotion)
				return err
			}, 2, retry.Options{
				Breaker: breaker,
				OnRetry: func(attempt int, err error) {
					log.Printf("[CHECKOUT] ⚠️ retry %d for kiosk %s: %v", attempt, p.product.KioskToken, err)
				},
			})
			if err != nil {
				failCode = externalFailureCode(err)
				return err
			}
		}

		order := models.Order{
			OrderCode:          helpers.GenerateOrderCode(),
			UserID:             user.ID,
			OriginalAmount:     originalAmount,
			DiscountAmount:     discountAmount,
			DiscountPercentage: user.DiscountPercentage,
			TotalAmount:        totalAmount,
			Status:             models.OrderPending,
		}
		if err := tx.Create(&order).Error; err != nil {
			failCode = "ORDER_CREATION_ERROR"
			return err
		}

		for _, p := range purchases {
			data, err := json.Marshal(services.OrderItemData{
				SupplierOrderID: p.buy.OrderID,
				Keys:            p.buy.ProductKeys,
			})
			if err != nil {
				failCode = "ORDER_ITEMS_ERROR"
				return err
			}

			item := models.OrderItem{
				OrderID:    order.ID,
				ProductID:  p.product.ID,
				Quantity:   p.quantity,
				UnitPrice:  p.price,
				TotalPrice: p.price * float64(p.quantity),
				KioskToken: p.product.KioskToken,
				Data:       data,
			}
			if err := tx.Create(&item).Error; err != nil {
				failCode = "ORDER_ITEMS_ERROR"
				return err
			}

			// Guarded decrement so stock can never go negative even if a
			// concurrent order slipped past the locked read.
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", p.product.ID, p.quantity).
				Update("stock", gorm.Expr("stock - ?", p.quantity))
			if res.Error != nil {
				failCode = "ORDER_ITEMS_ERROR"
				return res.Error
			}
			if res.RowsAffected == 0 {
				failCode = "INSUFFICIENT_STOCK"
				return errors.New(failCode)
			}
		}

		if _, err := services.ApplyBalanceDelta(tx, &user, -totalAmount,
			models.TrxPurchase, order.OrderCode, fmt.Sprintf("Purchase order %s", order.OrderCode)); err != nil {
			failCode = "BALANCE_UPDATE_ERROR"
			return err
		}

		if err := services.AwardLoyaltyPoints(tx, &user, totalAmount); err != nil {
			failCode = "BALANCE_UPDATE_ERROR"
			return err
		}

		order.Status = models.OrderCompleted
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Update("status", order.Status).Error; err != nil {
			failCode = "ORDER_CREATION_ERROR"
			return err
		}

		created = order
		created.Items = nil
		return nil
	})

	if err != nil {
		metrics.OrdersFailedTotal.WithLabelValues(failCode).Inc()
		log.Printf("[CHECKOUT] ❌ user=%d checkout failed (%s): %v", authUser.ID, failCode, err)
		if failCode == "BALANCE_UPDATE_ERROR" || failCode == "ORDER_ITEMS_ERROR" || failCode == "ORDER_CREATION_ERROR" {
			logUnreconciledBuys(authUser.ID, err)
		}
		return helpers.JSONError(c, failCode)
	}

	var items []models.OrderItem
	if err := database.DB.Where("order_id = ?", created.ID).Find(&items).Error; err == nil {
		created.Items = items
	}

	// Keys the reseller did not return inline arrive later via the queue.
	for _, item := range created.Items {
		var data services.OrderItemData
		if json.Unmarshal(item.Data, &data) == nil && len(data.Keys) == 0 && data.SupplierOrderID != "" {
			if err := services.EnqueueSyncJob(database.DB, models.JobFetchOrderKeys, fiber.Map{
				"order_item_id":     item.ID,
				"supplier_order_id": data.SupplierOrderID,
			}); err != nil {
				log.Printf("[CHECKOUT] ⚠️ failed to enqueue key fetch for item %d: %v", item.ID, err)
			}
		}
	}

	metrics.OrdersCompletedTotal.Inc()
	metrics.OrdersAmountTotal.Add(created.TotalAmount)
	log.Printf("[CHECKOUT] ✅ user=%d order=%s total=%.0f", authUser.ID, created.OrderCode, created.TotalAmount)

	return helpers.JSONSuccess(c, "Order completed successfully", created)
}

func externalFailureCode(err error) string {
	if errors.Is(err, services.ErrAPITempDown) {
		return "API_TEMP_DOWN"
	}

	// Classify by the final cause, not the retry wrapper.
	var retryErr *retry.Error
	if errors.As(err, &retryErr) {
		err = retryErr.Err
	}

	var apiErr *taphoammo.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var coded interface{ ErrorCode() string }
	if errors.As(err, &coded) {
		return coded.ErrorCode()
	}
	return "UNEXPECTED_RESPONSE"
}

func logUnreconciledBuys(userID uint, err error) {
	// The reseller has no cancel endpoint; a buy that we could not record
	// locally needs manual follow-up.
	log.Printf("[CHECKOUT] 🚨 user=%d possible unreconciled reseller purchase, investigate: %v", userID, err)
}
