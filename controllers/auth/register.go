package auth

import (
	"strings"

	"acczen/database"
	"acczen/helpers"
	"acczen/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return helpers.JSONError(c, "INVALID_JSON")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || len(req.Password) < 8 {
		return helpers.JSONError(c, "EMAIL_AND_PASSWORD_REQUIRED")
	}

	var existing models.User
	if err := database.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return helpers.JSONError(c, "EMAIL_ALREADY_REGISTERED")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return helpers.JSONError(c, "FAILED_TO_REGISTER_USER")
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		LoyaltyTier:  "bronze",
		IsActive:     true,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		return helpers.JSONError(c, "FAILED_TO_REGISTER_USER")
	}

	token, err := helpers.GenerateToken(user.ID, user.Role)
	if err != nil {
		return helpers.JSONError(c, "FAILED_TO_ISSUE_TOKEN")
	}

	return helpers.JSONSuccess(c, "User registered successfully", fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":    user.ID,
			"email": user.Email,
			"role":  user.Role,
		},
	})
}
