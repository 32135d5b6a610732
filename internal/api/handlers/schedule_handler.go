package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/service"
	"github.com/mckzv/channelpilot/internal/transfer"
)

type ScheduleHandler struct {
	s service.SchedulerService
}

func NewScheduleHandler(service service.SchedulerService) *ScheduleHandler {
	return &ScheduleHandler{s: service}
}

func (h *ScheduleHandler) CreateSchedule(c *fiber.Ctx) error {
	var body transfer.ScheduleCreation
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	scheduledAt, err := parseTimeField(body.ScheduledAt)
	if err != nil || scheduledAt == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "scheduled_at must be a RFC3339 timestamp",
		})
	}

	switch models.ScheduleType(body.ScheduleType) {
	case models.ScheduleTypeSimultaneous:
		if body.ContentItemID == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "content_item_id is required",
			})
		}
		schedules, err := h.s.CreateSimultaneous(c.Context(), *body.ContentItemID, body.ChannelIDs, *scheduledAt, body.WaveID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(schedules)

	case models.ScheduleTypeStaggered:
		if body.ContentItemID == nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "content_item_id is required",
			})
		}
		schedules, err := h.s.CreateStaggered(c.Context(), *body.ContentItemID, body.ChannelIDs, *scheduledAt, body.DelaySeconds, body.WaveID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(schedules)

	case models.ScheduleTypeIndependent:
		schedule, err := h.s.CreateIndependent(c.Context(), body.ChannelID, *scheduledAt, body.ContentItemID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusOK).JSON(schedule)

	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown schedule type",
		})
	}
}

func (h *ScheduleHandler) PauseSchedule(c *fiber.Ctx) error {
	scheduleID, err := c.ParamsInt("id")
	if err != nil || scheduleID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule id",
		})
	}

	if err := h.s.Pause(c.Context(), int64(scheduleID)); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *ScheduleHandler) ResumeSchedule(c *fiber.Ctx) error {
	scheduleID, err := c.ParamsInt("id")
	if err != nil || scheduleID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule id",
		})
	}

	if err := h.s.Resume(c.Context(), int64(scheduleID)); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *ScheduleHandler) CancelSchedule(c *fiber.Ctx) error {
	scheduleID, err := c.ParamsInt("id")
	if err != nil || scheduleID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule id",
		})
	}

	if err := h.s.Cancel(c.Context(), int64(scheduleID)); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *ScheduleHandler) ExecuteDue(c *fiber.Ctx) error {
	executed, err := h.s.ExecutePending(c.Context(), time.Now())
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"executed":  len(executed),
		"schedules": executed,
	})
}

func (h *ScheduleHandler) ValidateSchedule(c *fiber.Ctx) error {
	scheduleID, err := c.ParamsInt("id")
	if err != nil || scheduleID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid schedule id",
		})
	}

	validation, err := h.s.Validate(c.Context(), int64(scheduleID))
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(validation)
}
