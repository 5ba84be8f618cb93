package services

import (
	"errors"
	"fmt"

	"acczen/models"

	"gorm.io/gorm"
)

var ErrInsufficientFunds = errors.New("INSUFFICIENT_FUNDS")

// ApplyBalanceDelta mutates a user's balance and writes the matching ledger
// row in the caller's transaction. The caller must hold the user row locked
// (SELECT ... FOR UPDATE); this function never commits on its own, so a
// failed ledger insert rolls the balance change back with it.
func ApplyBalanceDelta(tx *gorm.DB, user *models.User, amount float64, trxType, refID, note string) (*models.Transaction, error) {
	if amount < 0 && user.Balance+amount < 0 {
		return nil, ErrInsufficientFunds
	}

	before := user.Balance
	user.Balance += amount

	if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
		Update("balance", user.Balance).Error; err != nil {
		return nil, fmt.Errorf("update balance: %w", err)
	}

	entry := models.Transaction{
		UserID:        user.ID,
		TrxType:       trxType,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  user.Balance,
		RefID:         refID,
		Note:          note,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, fmt.Errorf("create ledger entry: %w", err)
	}

	return &entry, nil
}
