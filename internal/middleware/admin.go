package middleware

import (
	"crypto/subtle"

	"github.com/exampartner/backend/internal/config"
	"github.com/exampartner/backend/internal/dto"
	"github.com/gofiber/fiber/v2"
)

// AdminRequired gates admin routes behind the pre-shared x-admin-key
// header, compared in constant time. An unconfigured secret disables the
// routes entirely rather than leaving them open.
func AdminRequired(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if cfg.AdminSecret == "" {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error: true, Message: "Admin access not configured",
			})
		}

		provided := c.Get("x-admin-key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.AdminSecret)) != 1 {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}
		return c.Next()
	}
}
