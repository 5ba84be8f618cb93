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
	"acczen/providers/tron"
	"acczen/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Rounding tolerance between the expected and the on-chain USDT amount.
var usdtTolerance = decimal.NewFromFloat(0.01)

var errAlreadyCredited = errors.New("deposit already credited")

// creditUsdtDeposit completes the deposit and credits the balance in one
// transaction. A deposit found completed under lock returns
// errAlreadyCredited so the caller does not credit (or count) it twice.
func creditUsdtDeposit(userID, depositID uint, amount float64, txnHash string) error {
	return database.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, userID).Error; err != nil {
			return err
		}

		var current models.Deposit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, depositID).Error; err != nil {
			return err
		}
		if current.Status == models.DepositCompleted {
			return errAlreadyCredited
		}

		// The unique index on txn_hash backs this up at the database level.
		if err := tx.Model(&models.Deposit{}).Where("id = ?", depositID).Updates(map[string]any{
			"status":   models.DepositCompleted,
			"txn_hash": txnHash,
		}).Error; err != nil {
			return err
		}

		_, err := services.ApplyBalanceDelta(tx, &locked, amount,
			models.TrxDeposit, uuid.New().String(), "USDT deposit "+txnHash)
		return err
	})
}

type CreateUsdtRequest struct {
	UsdtAmount decimal.Decimal `json:"usdt_amount"`
}

type VerifyUsdtRequest struct {
	DepositID uint   `json:"deposit_id"`
	TxnHash   string `json:"txn_hash"`
}

func usdtVndRate() float64 {
	if v, err := strconv.ParseFloat(os.Getenv("USDT_VND_RATE"), 64); err == nil && v > 0 {
		return v
	}
	return 25000
}

// CreateUsdt records a pending USDT deposit with the amount the user
// promises to transfer to the shop wallet.
func CreateUsdt(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(models.User)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "UNAUTHORIZED")
	}

	var req CreateUsdtRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if req.UsdtAmount.LessThanOrEqual(decimal.Zero) {
		return helpers.JSONError(c, "AMOUNT_TOO_SMALL")
	}

	vndAmount, _ := req.UsdtAmount.Mul(decimal.NewFromFloat(usdtVndRate())).Round(0).Float64()

	dep := models.Deposit{
		UserID:        user.ID,
		Amount:        vndAmount,
		Status:        models.DepositPending,
		PaymentMethod: models.PaymentUSDT,
		UsdtAmount:    req.UsdtAmount,
	}
	if err := database.DB.Create(&dep).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_CREATE_DEPOSIT")
	}

	return helpers.JSONSuccess(c, "Deposit created", fiber.Map{
		"deposit_id":     dep.ID,
		"wallet_address": os.Getenv("USDT_WALLET_ADDRESS"),
		"usdt_amount":    dep.UsdtAmount,
		"amount":         dep.Amount,
	})
}

// VerifyUsdt checks the submitted transaction hash against the chain
// explorer and credits the deposit when the transfer matches. The same
// hash can never credit twice: the deposits.txn_hash column is unique and
// the hash is looked up before crediting.
func VerifyUsdt(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(models.User)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "UNAUTHORIZED")
	}

	var req VerifyUsdtRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if req.TxnHash == "" {
		return helpers.JSONError(c, "TXN_HASH_REQUIRED")
	}

	var dep models.Deposit
	if err := database.DB.Where("id = ? AND user_id = ? AND payment_method = ?",
		req.DepositID, user.ID, models.PaymentUSDT).First(&dep).Error; err != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "DEPOSIT_NOT_FOUND")
	}
	if dep.Status == models.DepositCompleted {
		return helpers.JSONError(c, "ALREADY_CREDITED")
	}
	if dep.Status != models.DepositPending {
		return helpers.JSONError(c, "DEPOSIT_NOT_PENDING")
	}

	// Idempotency: reject any hash that already credited a deposit.
	var existing models.Deposit
	if err := database.DB.Where("txn_hash = ?", req.TxnHash).First(&existing).Error; err == nil {
		return helpers.JSONError(c, "ALREADY_CREDITED")
	}

	transfer, err := tron.NewClient().GetTransactionInfo(req.TxnHash)
	if err != nil {
		log.Printf("[DEPOSIT] ❌ user=%d explorer lookup failed for %s: %v", user.ID, req.TxnHash, err)
		return helpers.JSONError(c, "TX_LOOKUP_FAILED")
	}

	if !transfer.Confirmed {
		return helpers.JSONError(c, "TX_NOT_CONFIRMED")
	}
	if wallet := os.Getenv("USDT_WALLET_ADDRESS"); wallet != "" && transfer.To != wallet {
		return helpers.JSONError(c, "WRONG_RECIPIENT")
	}
	if contract := os.Getenv("USDT_CONTRACT_ADDRESS"); contract != "" && transfer.ContractAddress != contract {
		return helpers.JSONError(c, "WRONG_RECIPIENT")
	}
	if transfer.Amount.Sub(dep.UsdtAmount).Abs().GreaterThan(usdtTolerance) {
		log.Printf("[DEPOSIT] ❌ user=%d amount mismatch on %s: onchain=%s expected=%s",
			user.ID, req.TxnHash, transfer.Amount, dep.UsdtAmount)
		return helpers.JSONError(c, "AMOUNT_MISMATCH")
	}

	err = creditUsdtDeposit(user.ID, dep.ID, dep.Amount, req.TxnHash)
	if errors.Is(err, errAlreadyCredited) {
		// Lost the race to a concurrent verify; that one owns the metrics.
		return helpers.JSONError(c, "ALREADY_CREDITED")
	}
	if err != nil {
		log.Printf("[DEPOSIT] ❌ user=%d usdt credit failed: %v", user.ID, err)
		return helpers.JSONError(c, "BALANCE_UPDATE_ERROR")
	}

	metrics.DepositsCompletedTotal.WithLabelValues(models.PaymentUSDT).Inc()
	metrics.DepositsAmountTotal.WithLabelValues(models.PaymentUSDT).Add(dep.Amount)
	log.Printf("[DEPOSIT] ✅ user=%d usdt deposit %d credited %.0f (tx %s)", user.ID, dep.ID, dep.Amount, req.TxnHash)

	return helpers.JSONSuccess(c, "Deposit completed", fiber.Map{
		"deposit_id": dep.ID,
		"amount":     dep.Amount,
	})
}
