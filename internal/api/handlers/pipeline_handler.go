package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mckzv/channelpilot/internal/service"
	"github.com/mckzv/channelpilot/internal/transfer"
)

// PipelineHandler exposes the local pipeline directly, bypassing the
// coordinator's CI dispatch decision. Useful for reprocessing a known item.
type PipelineHandler struct {
	s service.PipelineService
}

func NewPipelineHandler(service service.PipelineService) *PipelineHandler {
	return &PipelineHandler{s: service}
}

func (h *PipelineHandler) RunPipeline(c *fiber.Ctx) error {
	var body transfer.PipelineRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	result, err := h.s.Run(c.Context(), body.ChannelID, body.SourceLocator, body.ContentItemID, body.SkipPublish)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(result)
}
