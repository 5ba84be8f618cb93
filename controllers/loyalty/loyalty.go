package loyalty

import (
	"acczen/helpers"
	"acczen/models"
	"acczen/services"

	"github.com/gofiber/fiber/v2"
)

// tier thresholds, points still needed to the next one
var tierLadder = []struct {
	Tier   string
	Points int64
}{
	{services.TierBronze, 0},
	{services.TierSilver, 1000},
	{services.TierGold, 5000},
	{services.TierPlatinum, 20000},
}

func Info(c *fiber.Ctx) error {
	user, ok := c.Locals("user").(models.User)
	if !ok {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "UNAUTHORIZED")
	}

	var nextTier string
	var pointsToNext int64
	for _, step := range tierLadder {
		if user.LoyaltyPoints < step.Points {
			nextTier = step.Tier
			pointsToNext = step.Points - user.LoyaltyPoints
			break
		}
	}

	return helpers.JSONSuccess(c, "OK", fiber.Map{
		"points":         user.LoyaltyPoints,
		"tier":           user.LoyaltyTier,
		"next_tier":      nextTier,
		"points_to_next": pointsToNext,
	})
}
