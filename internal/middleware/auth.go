package middleware

import (
	"strings"

	"github.com/exampartner/backend/internal/config"
	"github.com/exampartner/backend/internal/dto"
	"github.com/exampartner/backend/internal/token"
	"github.com/gofiber/fiber/v2"
)

const identifierKey = "identifier"

// BearerAuth requires a valid bearer token and stores the subject in
// c.Locals("identifier").
func BearerAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		identifier, ok := bearerSubject(c, cfg.TokenSecret)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Not authenticated",
			})
		}
		c.Locals(identifierKey, identifier)
		return c.Next()
	}
}

// OptionalBearer resolves the subject when a valid token is present but
// lets anonymous requests through. Content endpoints use it: unauthenticated
// callers still get the free preview.
func OptionalBearer(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if identifier, ok := bearerSubject(c, cfg.TokenSecret); ok {
			c.Locals(identifierKey, identifier)
		}
		return c.Next()
	}
}

// Identifier returns the authenticated subject set by BearerAuth or
// OptionalBearer, or "" when anonymous.
func Identifier(c *fiber.Ctx) string {
	if v, ok := c.Locals(identifierKey).(string); ok {
		return v
	}
	return ""
}

func bearerSubject(c *fiber.Ctx, secret string) (string, bool) {
	auth := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "bearer ") {
		return "", false
	}
	claims, err := token.Parse(strings.TrimSpace(auth[7:]), secret)
	if err != nil {
		return "", false
	}
	return claims.Sub, true
}
