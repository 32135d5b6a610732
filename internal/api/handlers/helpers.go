package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mckzv/channelpilot/internal/service"
)

func GetSessionLabel(c *fiber.Ctx) string {
	label, _ := c.Locals("session_label").(string)
	return label
}

// serviceError maps service errors onto HTTP statuses: validation failures
// are the caller's fault, missing resources are 404, the rest is 500.
func serviceError(c *fiber.Ctx, err error) error {
	if service.IsValidationError(err) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	if service.IsNotFoundError(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// parseTimeField parses an optional RFC3339 request field.
func parseTimeField(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
