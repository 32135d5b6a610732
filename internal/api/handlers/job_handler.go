package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/service"
	"github.com/mckzv/channelpilot/internal/transfer"
)

type JobHandler struct {
	s service.JobQueueService
}

func NewJobHandler(service service.JobQueueService) *JobHandler {
	return &JobHandler{s: service}
}

func (h *JobHandler) EnqueueJob(c *fiber.Ctx) error {
	var body transfer.EnqueueRequest
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	job, err := h.s.Enqueue(c.Context(), body.ContentItemID, body.ChannelID,
		models.JobType(body.JobType), body.Priority, body.MaxAttempts)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(job)
}

func (h *JobHandler) ListJobs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)

	var jobType *models.JobType
	if raw := c.Query("type"); raw != "" {
		t := models.JobType(raw)
		if !t.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown job type",
			})
		}
		jobType = &t
	}

	jobs, err := h.s.ListPending(c.Context(), jobType, limit)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list jobs",
		})
	}

	return c.Status(fiber.StatusOK).JSON(jobs)
}

func (h *JobHandler) ExecuteNext(c *fiber.Ctx) error {
	var jobType *models.JobType
	if raw := c.Query("type"); raw != "" {
		t := models.JobType(raw)
		if !t.Valid() {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Unknown job type",
			})
		}
		jobType = &t
	}

	job, err := h.s.ExecuteNext(c.Context(), jobType)
	if err != nil {
		return serviceError(c, err)
	}
	if job == nil {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "No job executed",
		})
	}

	return c.Status(fiber.StatusOK).JSON(job)
}

func (h *JobHandler) ProcessBatch(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)

	ran, err := h.s.ProcessBatch(c.Context(), limit)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"processed": ran,
	})
}

func (h *JobHandler) RetryJob(c *fiber.Ctx) error {
	jobID, err := c.ParamsInt("id")
	if err != nil || jobID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid job id",
		})
	}

	if err := h.s.Retry(c.Context(), int64(jobID)); err != nil {
		return serviceError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

func (h *JobHandler) PauseQueue(c *fiber.Ctx) error {
	if err := h.s.Pause(c.Context()); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *JobHandler) ResumeQueue(c *fiber.Ctx) error {
	if err := h.s.Resume(c.Context()); err != nil {
		return serviceError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *JobHandler) QueueStatistics(c *fiber.Ctx) error {
	stats, err := h.s.Statistics(c.Context())
	if err != nil {
		return serviceError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(stats)
}
