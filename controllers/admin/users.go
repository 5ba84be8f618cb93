package admin

import (
	"log"

	"acczen/database"
	"acczen/helpers"
	"acczen/models"
	"acczen/services"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func ListUsers(c *fiber.Ctx) error {
	query := database.DB.Model(&models.User{})
	if email := c.Query("email"); email != "" {
		query = query.Where("email ILIKE ?", "%"+email+"%")
	}

	var users []models.User
	if err := query.Order("created_at DESC").Limit(200).Find(&users).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_LOAD_USERS")
	}
	return helpers.JSONSuccess(c, "OK", users)
}

type UserUpdateRequest struct {
	DiscountPercentage *float64 `json:"discount_percentage"`
	IsActive           *bool    `json:"is_active"`
	Role               *string  `json:"role"`
}

func UpdateUser(c *fiber.Ctx) error {
	var user models.User
	if err := database.DB.First(&user, c.Params("id")).Error; err != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "USER_NOT_FOUND")
	}

	var req UserUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	updates := map[string]any{}
	if req.DiscountPercentage != nil {
		if *req.DiscountPercentage < 0 || *req.DiscountPercentage > 100 {
			return helpers.JSONError(c, "INVALID_DISCOUNT")
		}
		updates["discount_percentage"] = *req.DiscountPercentage
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if req.Role != nil {
		if *req.Role != models.RoleUser && *req.Role != models.RoleAdmin {
			return helpers.JSONError(c, "INVALID_ROLE")
		}
		updates["role"] = *req.Role
	}
	if len(updates) == 0 {
		return helpers.JSONError(c, "NOTHING_TO_UPDATE")
	}

	if err := database.DB.Model(&user).Updates(updates).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_UPDATE_USER")
	}
	return helpers.JSONSuccess(c, "User updated", user)
}

type BalanceAdjustRequest struct {
	Amount float64 `json:"amount"`
	Note   string  `json:"note"`
}

// AdjustBalance applies a signed manual correction to a user's balance,
// with the usual ledger row.
func AdjustBalance(c *fiber.Ctx) error {
	var req BalanceAdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}
	if req.Amount == 0 {
		return helpers.JSONError(c, "AMOUNT_REQUIRED")
	}

	var user models.User
	if err := database.DB.First(&user, c.Params("id")).Error; err != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusNotFound, "USER_NOT_FOUND")
	}

	note := req.Note
	if note == "" {
		note = "Manual adjustment"
	}

	failCode := "BALANCE_UPDATE_ERROR"
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var locked models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&locked, user.ID).Error; err != nil {
			return err
		}

		_, err := services.ApplyBalanceDelta(tx, &locked, req.Amount,
			models.TrxAdjustment, uuid.New().String(), note)
		if err != nil {
			if err == services.ErrInsufficientFunds {
				failCode = "INSUFFICIENT_FUNDS"
			}
			return err
		}
		user = locked
		return nil
	})
	if err != nil {
		log.Printf("[ADMIN] ❌ balance adjust failed for user %d: %v", user.ID, err)
		return helpers.JSONError(c, failCode)
	}

	log.Printf("[ADMIN] ✅ balance adjusted for user %d by %.0f", user.ID, req.Amount)
	return helpers.JSONSuccess(c, "Balance adjusted", fiber.Map{
		"user_id": user.ID,
		"balance": helpers.FormatFloat(user.Balance, 2),
	})
}
