package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"
	config "github.com/mckzv/channelpilot/configs"
	"github.com/mckzv/channelpilot/internal/service"
	"github.com/mckzv/channelpilot/pkg/utils"
)

type AuthMiddleware struct {
	s   service.ApiKeyService
	cfg *config.Config
}

func NewAuthMiddleware(cfg *config.Config, service service.ApiKeyService) *AuthMiddleware {
	return &AuthMiddleware{s: service, cfg: cfg}
}

func (m *AuthMiddleware) AuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(m.cfg.CookieName)
		apiKey := c.Get("X-Api-Key")
		if apiKey == "" {
			apiKey = c.Query("api_key")
		}

		if tokenString == "" && apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing API key or session cookie",
			})
		}

		if apiKey != "" {
			authorized, err := m.s.Authorize(c.Context(), apiKey)
			if err != nil {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": err.Error(),
				})
			}
			if !authorized {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid API key",
				})
			}
			c.Locals("session_label", "api_key")
		} else {
			claims, err := utils.ValidateToken(m.cfg.SecretKey, tokenString)
			if err != nil {
				c.Cookie(&fiber.Cookie{
					Name:   m.cfg.CookieName,
					Value:  "",
					Path:   "/",
					MaxAge: -1, // Delete cookie
				})

				log.Printf("Token validation failed: %v", err)
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired token",
				})
			}

			c.Locals("session_label", claims.Label)
		}
		return c.Next()
	}
}
