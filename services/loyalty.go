package services

import (
	"acczen/models"

	"gorm.io/gorm"
)

const (
	TierBronze   = "bronze"
	TierSilver   = "silver"
	TierGold     = "gold"
	TierPlatinum = "platinum"
)

// One loyalty point per 10,000 VND spent.
const pointsPerVND = 1.0 / 10000.0

func PointsForAmount(amount float64) int64 {
	if amount <= 0 {
		return 0
	}
	return int64(amount * pointsPerVND)
}

func TierForPoints(points int64) string {
	switch {
	case points >= 20000:
		return TierPlatinum
	case points >= 5000:
		return TierGold
	case points >= 1000:
		return TierSilver
	default:
		return TierBronze
	}
}

// AwardLoyaltyPoints adds the points earned by a completed order and
// recomputes the tier, inside the caller's transaction.
func AwardLoyaltyPoints(tx *gorm.DB, user *models.User, orderTotal float64) error {
	points := PointsForAmount(orderTotal)
	if points == 0 {
		return nil
	}

	user.LoyaltyPoints += points
	user.LoyaltyTier = TierForPoints(user.LoyaltyPoints)

	return tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]any{
		"loyalty_points": user.LoyaltyPoints,
		"loyalty_tier":   user.LoyaltyTier,
	}).Error
}
