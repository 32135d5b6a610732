package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mckzv/channelpilot/internal/service"
	"github.com/mckzv/channelpilot/internal/transfer"
)

type DistributionHandler struct {
	s service.DistributionService
}

func NewDistributionHandler(service service.DistributionService) *DistributionHandler {
	return &DistributionHandler{s: service}
}

func (h *DistributionHandler) DistributeByFilters(c *fiber.Ctx) error {
	var body transfer.DistributionRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	created, err := h.s.AutoDistributeByFilters(c.Context(), body.ContentItemID, body.ChannelIDs)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"created":       len(created),
		"distributions": created,
	})
}

func (h *DistributionHandler) DistributeBySchedule(c *fiber.Ctx) error {
	var body transfer.DistributionRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	created, err := h.s.AutoDistributeBySchedule(c.Context(), body.ContentItemID, body.ChannelIDs)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"created":       len(created),
		"distributions": created,
	})
}

func (h *DistributionHandler) DistributeManually(c *fiber.Ctx) error {
	var body transfer.ManualDistributionRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	scheduledAt, err := parseTimeField(body.ScheduledAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scheduled_at must be a RFC3339 timestamp",
		})
	}

	created, err := h.s.ManualDistribute(c.Context(), body.ContentItemID, body.ChannelIDs, scheduledAt, body.Force)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"created":       len(created),
		"distributions": created,
	})
}

func (h *DistributionHandler) RetryDistribution(c *fiber.Ctx) error {
	distributionID, err := c.ParamsInt("id")
	if err != nil || distributionID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid distribution id",
		})
	}

	if err := h.s.RetryFailed(c.Context(), int64(distributionID)); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *DistributionHandler) DistributionStatistics(c *fiber.Ctx) error {
	var channelID *int64
	if id := c.QueryInt("channel_id", 0); id != 0 {
		v := int64(id)
		channelID = &v
	}

	var from, to *time.Time
	var err error
	if from, err = parseTimeField(c.Query("from")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "from must be a RFC3339 timestamp",
		})
	}
	if to, err = parseTimeField(c.Query("to")); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "to must be a RFC3339 timestamp",
		})
	}

	stats, err := h.s.Statistics(c.Context(), channelID, from, to)
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}
