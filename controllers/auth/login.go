package auth

import (
	"strings"

	"acczen/database"
	"acczen/helpers"
	"acczen/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return helpers.JSONError(c, "EMAIL_AND_PASSWORD_REQUIRED")
	}

	var user models.User
	if err := database.DB.Where("email = ? AND is_active = true", req.Email).First(&user).Error; err != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return helpers.JSONErrorStatus(c, fiber.StatusUnauthorized, "INVALID_CREDENTIALS")
	}

	token, err := helpers.GenerateToken(user.ID, user.Role)
	if err != nil {
		return helpers.JSONError(c, "FAILED_TO_ISSUE_TOKEN")
	}

	return helpers.JSONSuccess(c, "Login successful", fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":      user.ID,
			"email":   user.Email,
			"role":    user.Role,
			"balance": helpers.FormatFloat(user.Balance, 2),
		},
	})
}
