package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mckzv/channelpilot/internal/repository"
)

type ContentHandler struct {
	items repository.ContentItemRepository
}

func NewContentHandler(items repository.ContentItemRepository) *ContentHandler {
	return &ContentHandler{items: items}
}

func (h *ContentHandler) ListContent(c *fiber.Ctx) error {
	itemID := c.QueryInt("id", 0)
	if itemID != 0 {
		item, err := h.items.GetByID(c.Context(), int64(itemID))
		if err != nil {
			return serviceError(c, err)
		}
		if item == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Content item not found",
			})
		}
		return c.Status(fiber.StatusOK).JSON(item)
	}

	channelID := c.QueryInt("channel_id", 0)
	if channelID != 0 {
		items, err := h.items.ListByChannel(c.Context(), int64(channelID))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unable to list content items",
			})
		}
		return c.Status(fiber.StatusOK).JSON(items)
	}

	items, err := h.items.ListReady(c.Context())
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list content items",
		})
	}
	return c.Status(fiber.StatusOK).JSON(items)
}
