package models

import "gorm.io/gorm"

type Product struct {
	gorm.Model

	Name        string   `gorm:"size:255" json:"name"`
	Slug        string   `gorm:"uniqueIndex;size:255" json:"slug"`
	Description string   `gorm:"type:text" json:"description"`
	Category    string   `gorm:"size:64;index" json:"category"`
	Price       float64  `json:"price"`
	SalePrice   *float64 `json:"sale_price"`
	Stock       int64    `json:"stock"`

	// KioskToken identifies the product on the reseller side. A product
	// without it cannot be fulfilled and must be rejected at checkout.
	KioskToken string `gorm:"size:128;index" json:"kiosk_token"`

	IsActive bool `gorm:"default:true" json:"is_active"`
}

// EffectivePrice returns the sale price when one is set.
func (p *Product) EffectivePrice() float64 {
	if p.SalePrice != nil && *p.SalePrice > 0 && *p.SalePrice < p.Price {
		return *p.SalePrice
	}
	return p.Price
}
