package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	OrderPending   = "pending"
	OrderCompleted = "completed"
	OrderCancelled = "cancelled"
	OrderRefunded  = "refunded"
)

type Order struct {
	gorm.Model

	OrderCode          string  `gorm:"uniqueIndex;size:32" json:"order_code"`
	UserID             uint    `gorm:"index" json:"user_id"`
	OriginalAmount     float64 `json:"original_amount"`
	DiscountAmount     float64 `json:"discount_amount"`
	DiscountPercentage float64 `json:"discount_percentage"`
	TotalAmount        float64 `json:"total_amount"`
	Status             string  `gorm:"size:16;index" json:"status"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

type OrderItem struct {
	gorm.Model

	OrderID    uint    `gorm:"index" json:"order_id"`
	ProductID  uint    `gorm:"index" json:"product_id"`
	Quantity   int64   `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
	KioskToken string  `gorm:"size:128" json:"kiosk_token"`

	// Data holds the supplier order id and the fulfillment keys, which may
	// arrive asynchronously after the purchase.
	Data datatypes.JSON `gorm:"type:jsonb" json:"data"`
}
