package middlewares

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/gofiber/fiber/v2"
)

// AdminAuth guards the approval-authority endpoints with an HMAC signature
// over the admin code and secret, passed in the X-Admin-Signature header.
func AdminAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Admin-Signature")
		adminCode := c.Get("X-Admin-Code")

		if signature == "" || adminCode == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "ADMIN_CODE_AND_SIGNATURE_REQUIRED",
			})
		}

		masterCode := os.Getenv("ADMIN_CODE")
		masterSecret := os.Getenv("ADMIN_SECRET")
		if adminCode != masterCode {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "INVALID_ADMIN_CODE",
			})
		}

		h := hmac.New(sha256.New, []byte(masterSecret))
		h.Write([]byte(masterCode + masterSecret))
		expected := hex.EncodeToString(h.Sum(nil))

		if !hmac.Equal([]byte(signature), []byte(expected)) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "INVALID_SIGNATURE",
			})
		}

		c.Locals("admin", adminCode)
		return c.Next()
	}
}
