package helpers

import (
	"github.com/gofiber/fiber/v2"

	"cashcage/engine"
)

func JSONSuccess(c *fiber.Ctx, message string, data any) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    data,
	})
}

func JSONError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"success": false,
		"message": message,
		"data":    nil,
	})
}

// JSONEngineError maps an engine error class onto an HTTP status so callers
// can distinguish retryable conflicts from hard invariant rejections.
func JSONEngineError(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadRequest
	switch engine.Class(err) {
	case engine.ClassConflict:
		status = fiber.StatusConflict
	case engine.ClassNotFound:
		status = fiber.StatusNotFound
	case engine.ClassInvariant:
		status = fiber.StatusUnprocessableEntity
	case engine.ClassFatal:
		status = fiber.StatusInternalServerError
	}
	return c.Status(status).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
		"class":   engine.Class(err),
		"data":    nil,
	})
}
