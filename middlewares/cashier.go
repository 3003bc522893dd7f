package middlewares

import (
	"github.com/gofiber/fiber/v2"

	"cashcage/database"
	"cashcage/helpers"
	"cashcage/models"
)

// CashierAuth resolves the calling cashier from header credentials. The core
// trusts the resolved identity; who hands out the credentials is the identity
// provider's business.
func CashierAuth(c *fiber.Ctx) error {
	cashierCode := c.Get("X-Cashier-Code")
	secretKey := c.Get("X-Secret-Key")

	if cashierCode == "" || secretKey == "" {
		return helpers.JSONError(c, "CASHIER_CODE_AND_SECRET_REQUIRED")
	}

	var cashier models.Cashier
	if err := database.DB.Where("cashier_code = ? AND secret_key = ? AND is_active = true", cashierCode, secretKey).First(&cashier).Error; err != nil {
		return helpers.JSONError(c, "INVALID_CASHIER_CREDENTIALS")
	}

	c.Locals("cashier", cashier)
	return c.Next()
}
