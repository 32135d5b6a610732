package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mckzv/channelpilot/internal/models"
	"github.com/mckzv/channelpilot/internal/repository"
	"github.com/mckzv/channelpilot/internal/transfer"
)

type ChannelHandler struct {
	channels repository.ChannelRepository
}

func NewChannelHandler(channels repository.ChannelRepository) *ChannelHandler {
	return &ChannelHandler{channels: channels}
}

func (h *ChannelHandler) CreateChannel(c *fiber.Ctx) error {
	var body transfer.ChannelCreation
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	if body.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Channel name is required",
		})
	}

	channel := &models.Channel{
		Name:             body.Name,
		Platform:         body.Platform,
		AccountID:        body.AccountID,
		AccountName:      body.AccountName,
		Active:           body.Active,
		SourceURL:        body.SourceURL,
		ProcessingPreset: body.ProcessingPreset,
		CIWorkflowRef:    body.CIWorkflowRef,
		Filters:          body.Filters,
		Posting:          body.Posting,
	}

	id, err := h.channels.Create(c.Context(), channel)
	if err != nil {
		return serviceError(c, err)
	}
	channel.ID = id

	return c.Status(fiber.StatusOK).JSON(channel)
}

func (h *ChannelHandler) ListChannels(c *fiber.Ctx) error {
	channelID := c.QueryInt("id", 0)

	if channelID != 0 {
		channel, err := h.channels.GetByID(c.Context(), int64(channelID))
		if err != nil {
			return serviceError(c, err)
		}
		if channel == nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Channel not found",
			})
		}
		return c.Status(fiber.StatusOK).JSON(channel)
	}

	activeOnly := c.QueryBool("active", false)
	channels, err := h.channels.List(c.Context(), activeOnly)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to list channels",
		})
	}

	return c.Status(fiber.StatusOK).JSON(channels)
}

func (h *ChannelHandler) UpdateChannel(c *fiber.Ctx) error {
	channelID, err := c.ParamsInt("id")
	if err != nil || channelID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid channel id",
		})
	}

	channel, err := h.channels.GetByID(c.Context(), int64(channelID))
	if err != nil {
		return serviceError(c, err)
	}
	if channel == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Channel not found",
		})
	}

	var body transfer.ChannelCreation
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	channel.Name = body.Name
	channel.Active = body.Active
	channel.SourceURL = body.SourceURL
	channel.ProcessingPreset = body.ProcessingPreset
	channel.CIWorkflowRef = body.CIWorkflowRef
	channel.Filters = body.Filters
	channel.Posting = body.Posting

	if err := h.channels.Update(c.Context(), channel); err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(channel)
}

func (h *ChannelHandler) RemoveChannel(c *fiber.Ctx) error {
	channelID := c.QueryInt("id", 0)
	if channelID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid channel id",
		})
	}

	err := h.channels.Remove(c.Context(), int64(channelID))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Unable to remove channel",
		})
	}

	return c.SendStatus(fiber.StatusOK)
}
