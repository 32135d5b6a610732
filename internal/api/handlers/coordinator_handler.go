package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/service"
	"github.com/mckzv/channelpilot/internal/transfer"
)

type CoordinatorHandler struct {
	s service.CoordinatorService
}

func NewCoordinatorHandler(service service.CoordinatorService) *CoordinatorHandler {
	return &CoordinatorHandler{s: service}
}

func (h *CoordinatorHandler) Start(c *fiber.Ctx) error {
	if err := h.s.Start(c.Context()); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *CoordinatorHandler) Stop(c *fiber.Ctx) error {
	if err := h.s.Stop(c.Context()); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *CoordinatorHandler) Pause(c *fiber.Ctx) error {
	if err := h.s.Pause(c.Context()); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *CoordinatorHandler) Resume(c *fiber.Ctx) error {
	if err := h.s.Resume(c.Context()); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *CoordinatorHandler) Status(c *fiber.Ctx) error {
	status, err := h.s.Status(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(status)
}

func (h *CoordinatorHandler) CoordinatePublication(c *fiber.Ctx) error {
	var body transfer.PublicationRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	startTime, err := parseTimeField(body.ScheduledAt)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scheduled_at must be a RFC3339 timestamp",
		})
	}

	schedules, err := h.s.CoordinatePublication(c.Context(), body.ContentItemID, body.ChannelIDs,
		models.ScheduleType(body.Timing), startTime, body.DelaySeconds)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(schedules)
}

func (h *CoordinatorHandler) TriggerPipeline(c *fiber.Ctx) error {
	var body transfer.PipelineRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	trigger, err := h.s.TriggerPipeline(c.Context(), body.ChannelID, body.SourceLocator,
		body.ContentItemID, body.SkipPublish)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(trigger)
}

func (h *CoordinatorHandler) ScheduleWave(c *fiber.Ctx) error {
	var body transfer.WaveRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}
	if len(body.ContentItemIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "content_item_ids is required",
		})
	}

	startTime, err := parseTimeField(body.StartTime)
	if err != nil || startTime == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "start_time must be a RFC3339 timestamp",
		})
	}

	config := &transfer.WaveConfig{
		Timing:       models.ScheduleType(body.Timing),
		StartTime:    *startTime,
		DelaySeconds: body.DelaySeconds,
	}

	wave, err := h.s.ScheduleWavePublication(c.Context(), body.ContentItemIDs, config, body.ChannelIDs)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(wave)
}

func (h *CoordinatorHandler) MonitorChannels(c *fiber.Ctx) error {
	statuses, err := h.s.MonitorChannels(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(statuses)
}

func (h *CoordinatorHandler) DistributeVideos(c *fiber.Ctx) error {
	run, err := h.s.DistributeVideos(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(run)
}

func (h *CoordinatorHandler) Dashboard(c *fiber.Ctx) error {
	data, err := h.s.Dashboard(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(data)
}
