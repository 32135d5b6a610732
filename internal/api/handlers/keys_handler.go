package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mckzv/channelpilot/internal/service"
)

type ApiKeyHandler struct {
	s service.ApiKeyService
}

func NewApiKeyHandler(service service.ApiKeyService) *ApiKeyHandler {
	return &ApiKeyHandler{s: service}
}

func (h *ApiKeyHandler) CreateApiKey(c *fiber.Ctx) error {
	label := c.Query("label")

	key, err := h.s.Create(c.Context(), label)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"api_key": key,
	})
}

func (h *ApiKeyHandler) ListKeys(c *fiber.Ctx) error {
	keys, err := h.s.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list api keys",
		})
	}

	return c.Status(fiber.StatusOK).JSON(keys)
}

func (h *ApiKeyHandler) RemoveAPIKey(c *fiber.Ctx) error {
	keyId := c.QueryInt("id", 0)

	err := h.s.Remove(c.Context(), int64(keyId))
	if err != nil {
		return serviceError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}
