package deposit

import (
	"errors"
	"log"
	"os"
	"strconv"

	"acczen/database"
	"acczen/helpers"
	"acczen/metrics"
	"acczen/models"
	"acczen/providers/paypal"
	"acczen/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CreatePaypalRequest struct {
	Amount float64 `json:"amount"`
}

type CapturePaypalRequest struct {
	DepositID uint `json:"deposit_id"`
}

func usdVndRate() float64 {
	if v, err := strconv.ParseFloat(os.Getenv("PAYPAL_USD_VND_RATE"), 64); err == nil && v > 0 {
		return v
	}
	return 25000
}

// CreatePaypal opens a PayPal order for the requested VND amount and
// records a pending deposit pointing at it.
func CreatePaypal(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(models.User)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "UNAUTHORIZED")
	}

	var req CreatePaypalRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if req.Amount < 10000 {
		return helpers.JSONError(c, "AMOUNT_TOO_SMALL")
	}

	usdAmount := helpers.FormatFloat(req.Amount/usdVndRate(), 2)

	created, err := paypal.NewClient().CreateOrder(usdAmount, "USD")
	if err != nil {
		log.Printf("[DEPOSIT] ❌ user=%d paypal create failed: %v", user.ID, err)
		return helpers.JSONError(c, "PAYPAL_CREATE_FAILED")
	}

	dep := models.Deposit{
		UserID:        user.ID,
		Amount:        req.Amount,
		Status:        models.DepositPending,
		PaymentMethod: models.PaymentPaypal,
		PaypalOrderID: created.ID,
	}
	if err := database.DB.Create(&dep).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_CREATE_DEPOSIT")
	}

	return helpers.JSONSuccess(c, "Deposit created", fiber.Map{
		"deposit_id":   dep.ID,
		"approval_url": created.ApprovalURL,
	})
}

// CapturePaypal captures an approved PayPal order and credits the balance.
// Already-completed deposits return ALREADY_CREDITED instead of crediting twice.
func CapturePaypal(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(models.User)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "UNAUTHORIZED")
	}

	var req CapturePaypalRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	var dep models.Deposit
	if err := database.DB.Where("id = ? AND user_id = ? AND payment_method = ?",
		req.DepositID, user.ID, models.PaymentPaypal).First(&dep).Error; err != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "DEPOSIT_NOT_FOUND")
	}
	if dep.Status == models.DepositCompleted {
		return helpers.JSONError(c, "ALREADY_CREDITED")
	}
	if dep.Status != models.DepositPending && dep.Status != models.DepositProcessing {
		return helpers.JSONError(c, "DEPOSIT_NOT_PENDING")
	}

	capture, err := paypal.NewClient().CaptureOrder(dep.PaypalOrderID)
	if err != nil {
		log.Printf("[DEPOSIT] ❌ user=%d paypal capture failed: %v", user.ID, err)
		return helpers.JSONError(c, "PAYPAL_CAPTURE_FAILED")
	}
	if capture.Status != "COMPLETED" {
		_ = database.DB.Model(&dep).Update("status", models.DepositProcessing).Error
		return helpers.JSONError(c, "PAYPAL_NOT_COMPLETED")
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, user.ID).Error; err != nil {
			return err
		}

		// Re-check under lock so a concurrent capture cannot double-credit.
		var current models.Deposit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, dep.ID).Error; err != nil {
			return err
		}
		if current.Status == models.DepositCompleted {
			return errAlreadyCredited
		}

		if err := tx.Model(&models.Deposit{}).Where("id = ?", dep.ID).Updates(map[string]any{
			"status":          models.DepositCompleted,
			"paypal_payer_id": capture.PayerID,
		}).Error; err != nil {
			return err
		}

		_, err := services.ApplyBalanceDelta(tx, &locked, dep.Amount,
			models.TrxDeposit, uuid.New().String(), "PayPal deposit "+dep.PaypalOrderID)
		return err
	})
	if errors.Is(err, errAlreadyCredited) {
		return helpers.JSONError(c, "ALREADY_CREDITED")
	}
	if err != nil {
		log.Printf("[DEPOSIT] ❌ user=%d paypal credit failed: %v", user.ID, err)
		return helpers.JSONError(c, "BALANCE_UPDATE_ERROR")
	}

	metrics.DepositsCompletedTotal.WithLabelValues(models.PaymentPaypal).Inc()
	metrics.DepositsAmountTotal.WithLabelValues(models.PaymentPaypal).Add(dep.Amount)
	log.Printf("[DEPOSIT] ✅ user=%d paypal deposit %d credited %.0f", user.ID, dep.ID, dep.Amount)

	return helpers.JSONSuccess(c, "Deposit completed", fiber.Map{
		"deposit_id": dep.ID,
		"amount":     dep.Amount,
	})
}
