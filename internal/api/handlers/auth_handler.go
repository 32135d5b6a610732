package handlers

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	config "github.com/mckzv/channelpilot/configs"
	"github.com/mckzv/channelpilot/internal/platform"
	"github.com/mckzv/channelpilot/internal/repository"
	"github.com/mckzv/channelpilot/internal/service"
	"github.com/mckzv/channelpilot/pkg/utils"
)

type AuthHandler struct {
	cfg       *config.Config
	keys      service.ApiKeyService
	channels  repository.ChannelRepository
	publisher *platform.YouTubePublisher
}

func NewAuthHandler(cfg *config.Config, keys service.ApiKeyService, channels repository.ChannelRepository, publisher *platform.YouTubePublisher) *AuthHandler {
	return &AuthHandler{cfg: cfg, keys: keys, channels: channels, publisher: publisher}
}

// CreateSession exchanges a valid API key for a session cookie, so browser
// clients do not have to carry the key on every request.
func (h *AuthHandler) CreateSession(c *fiber.Ctx) error {
	var body struct {
		ApiKey string `json:"api_key"`
		Label  string `json:"label"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unable to parse request body",
		})
	}

	authorized, err := h.keys.Authorize(c.Context(), body.ApiKey)
	if err != nil {
		return serviceError(c, err)
	}
	if !authorized {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid API key",
		})
	}

	label := body.Label
	if label == "" {
		label = "operator"
	}

	token, err := utils.GenerateToken(h.cfg.SecretKey, label, 24*time.Hour)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cfg.CookieName,
		Value:    token,
		HTTPOnly: true,
		Secure:   false,
		SameSite: fiber.CookieSameSiteNoneMode,
		Path:     "/",
		Expires:  time.Now().Add(24 * time.Hour),
	})

	return c.SendStatus(fiber.StatusOK)
}

// ConnectChannel starts the OAuth flow that links a channel to its platform
// account. The channel id rides along in the state parameter.
func (h *AuthHandler) ConnectChannel(c *fiber.Ctx) error {
	channelID, err := c.ParamsInt("id")
	if err != nil || channelID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid channel id",
		})
	}

	authURL := "https://accounts.google.com/o/oauth2/v2/auth"
	params := url.Values{}
	params.Add("client_id", h.cfg.GoogleClientID)
	params.Add("redirect_uri", h.cfg.GoogleRedirectURI)
	params.Add("response_type", "code")
	params.Add("scope", "https://www.googleapis.com/auth/userinfo.profile https://www.googleapis.com/auth/userinfo.email https://www.googleapis.com/auth/youtube.upload")
	params.Add("state", strconv.Itoa(channelID))
	params.Add("access_type", "offline")
	params.Add("prompt", "consent")

	fullURL := fmt.Sprintf("%s?%s", authURL, params.Encode())
	return c.Redirect(fullURL)
}

func (h *AuthHandler) ConnectCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	channelID, err := strconv.ParseInt(c.Query("state"), 10, 64)
	if err != nil || channelID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid state parameter",
		})
	}

	channel, err := h.channels.GetByID(c.Context(), channelID)
	if err != nil {
		return serviceError(c, err)
	}
	if channel == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Channel not found",
		})
	}

	token, err := h.publisher.ExchangeCode(c.Context(), code)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "something went wrong",
		})
	}

	err = h.channels.SetConnection(c.Context(), channel.ID, token.Account.ID, token.Account.Name,
		token.AccessToken, token.RefreshToken, token.ExpiresAt)
	if err != nil {
		return serviceError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":    "Channel connected",
		"channel_id": channel.ID,
		"account":    token.Account.Name,
	})
}
