package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DepositPending    = "pending"
	DepositProcessing = "processing"
	DepositCompleted  = "completed"
	DepositRejected   = "rejected"
	DepositFailed     = "failed"
)

const (
	PaymentPaypal = "paypal"
	PaymentUSDT   = "usdt"
)

type Deposit struct {
	gorm.Model

	UserID        uint    `gorm:"index" json:"user_id"`
	Amount        float64 `json:"amount"`
	Status        string  `gorm:"size:16;index" json:"status"`
	PaymentMethod string  `gorm:"size:16;index" json:"payment_method"`

	PaypalOrderID string `gorm:"size:64;index" json:"paypal_order_id,omitempty"`
	PaypalPayerID string `gorm:"size:64" json:"paypal_payer_id,omitempty"`

	// USDT deposits: expected on-chain amount and the hash that proved it.
	// TxnHash is unique so the same transfer can never credit twice.
	UsdtAmount decimal.Decimal `gorm:"type:numeric(20,6);default:0" json:"usdt_amount"`
	TxnHash    *string         `gorm:"uniqueIndex;size:100" json:"txn_hash,omitempty"`

	Metadata datatypes.JSON `gorm:"type:jsonb" json:"metadata"`
}
