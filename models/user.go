package models

import (
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	TrxDeposit    = "deposit"
	TrxPurchase   = "purchase"
	TrxRefund     = "refund"
	TrxAdjustment = "adjustment"
)

type User struct {
	gorm.Model

	Email              string  `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash       string  `gorm:"size:128" json:"-"`
	Role               string  `gorm:"size:16;default:user" json:"role"`
	Balance            float64 `json:"balance"`
	DiscountPercentage float64 `json:"discount_percentage"`
	LoyaltyPoints      int64   `json:"loyalty_points"`
	LoyaltyTier        string  `gorm:"size:16;default:bronze" json:"loyalty_tier"`
	IsActive           bool    `gorm:"default:true" json:"is_active"`

	Transactions []Transaction `gorm:"foreignKey:UserID" json:"-"`
	Orders       []Order       `gorm:"foreignKey:UserID" json:"-"`
}

// Transaction is the append-only balance ledger. Rows are written in the
// same database transaction as the balance mutation they record and are
// never updated or deleted afterwards.
type Transaction struct {
	gorm.Model

	UserID        uint    `gorm:"index"`
	TrxType       string  `gorm:"size:16;index" json:"trx_type"`
	Amount        float64 `json:"amount"`
	BalanceBefore float64 `json:"balance_before"`
	BalanceAfter  float64 `json:"balance_after"`
	RefID         string  `gorm:"size:64;index" json:"ref_id"`
	Note          string  `gorm:"size:255" json:"note"`
}
