package handler

import (
	"github.com/faruque-tulsi/license-server/internal/database"
	"github.com/faruque-tulsi/license-server/internal/model"
	"github.com/faruque-tulsi/license-server/internal/util"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
)

// HandleAdminLogin checks credentials and issues a signed admin token.
func HandleAdminLogin(c *fiber.Ctx) error {
	input := new(model.AdminLogin)
	if err := c.BodyParser(input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var user model.AdminUser
	result := database.DB.Where("username = ?", input.Username).First(&user)
	if result.Error != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	token, err := util.GenerateToken(user.Username)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	return c.JSON(fiber.Map{
		"token":    token,
		"username": user.Username,
	})
}
