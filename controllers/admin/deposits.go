package admin

import (
	"errors"
	"log"

	"acczen/database"
	"acczen/helpers"
	"acczen/metrics"
	"acczen/models"
	"acczen/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func ListDeposits(c *fiber.Ctx) error {
	query := database.DB.Model(&models.Deposit{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if method := c.Query("payment_method"); method != "" {
		query = query.Where("payment_method = ?", method)
	}

	var deposits []models.Deposit
	if err := query.Order("created_at DESC").Limit(200).Find(&deposits).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_LOAD_DEPOSITS")
	}
	return helpers.JSONSuccess(c, "OK", deposits)
}

type ReviewRequest struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// A deposit found completed under lock was settled by a concurrent
// capture/verify; approving it again must not credit or count twice.
var errDepositSettled = errors.New("deposit already settled")

// ReviewDeposit manually settles a stuck pending/processing deposit:
// approval credits the balance, rejection just flips the status.
func ReviewDeposit(c *fiber.Ctx) error {
	var req ReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	var dep models.Deposit
	if err := database.DB.First(&dep, c.Params("id")).Error; err != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "DEPOSIT_NOT_FOUND")
	}
	if dep.Status != models.DepositPending && dep.Status != models.DepositProcessing {
		return helpers.JSONError(c, "DEPOSIT_NOT_PENDING")
	}

	if !req.Approve {
		if err := database.DB.Model(&dep).Update("status", models.DepositRejected).Error; err != nil {
			return helpers.JSONError(c, "FAILED_TO_UPDATE_DEPOSIT")
		}
		log.Printf("[ADMIN] ✅ deposit %d rejected", dep.ID)
		return helpers.JSONSuccess(c, "Deposit rejected", fiber.Map{"deposit_id": dep.ID})
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, dep.UserID).Error; err != nil {
			return err
		}

		var current models.Deposit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, dep.ID).Error; err != nil {
			return err
		}
		if current.Status == models.DepositCompleted {
			return errDepositSettled
		}

		if err := tx.Model(&models.Deposit{}).Where("id = ?", dep.ID).
			Update("status", models.DepositCompleted).Error; err != nil {
			return err
		}

		note := req.Note
		if note == "" {
			note = "Deposit approved by admin"
		}
		_, err := services.ApplyBalanceDelta(tx, &locked, dep.Amount,
			models.TrxDeposit, uuid.New().String(), note)
		return err
	})
	if errors.Is(err, errDepositSettled) {
		return helpers.JSONError(c, "ALREADY_CREDITED")
	}
	if err != nil {
		log.Printf("[ADMIN] ❌ deposit %d approval failed: %v", dep.ID, err)
		return helpers.JSONError(c, "BALANCE_UPDATE_ERROR")
	}

	metrics.DepositsCompletedTotal.WithLabelValues(dep.PaymentMethod).Inc()
	metrics.DepositsAmountTotal.WithLabelValues(dep.PaymentMethod).Add(dep.Amount)
	log.Printf("[ADMIN] ✅ deposit %d approved, credited %.0f", dep.ID, dep.Amount)

	return helpers.JSONSuccess(c, "Deposit approved", fiber.Map{
		"deposit_id": dep.ID,
		"amount":     dep.Amount,
	})
}
