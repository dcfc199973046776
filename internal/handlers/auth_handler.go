package handlers

import (
	"errors"
	"log/slog"

	"github.com/exampartner/backend/internal/dto"
	"github.com/exampartner/backend/internal/middleware"
	"github.com/exampartner/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	svc *services.AuthService
}

func NewAuthHandler(svc *services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.AuthRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.svc.Register(c.Context(), &req)
	if err != nil {
		if errors.Is(err, services.ErrUserExists) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
				Error: true, Message: "Account already exists",
			})
		}
		return badRequest(c, "Invalid identifier or password")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.AuthRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	resp, err := h.svc.Login(c.Context(), &req)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid credentials",
		})
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	identifier := middleware.Identifier(c)

	resp, err := h.svc.Me(c.Context(), identifier)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Not authenticated",
		})
	}
	return c.JSON(resp)
}

func (h *AuthHandler) UpdateEmail(c *fiber.Ctx) error {
	var req dto.UpdateEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	identifier := middleware.Identifier(c)
	if err := h.svc.UpdateEmail(c.Context(), identifier, req.Email); err != nil {
		return badRequest(c, "Invalid email")
	}
	return c.JSON(fiber.Map{"ok": true})
}

// FoundingStatus is public: the checkout page shows whether founding
// pricing is still open.
func (h *AuthHandler) FoundingStatus(c *fiber.Ctx) error {
	resp, err := h.svc.FoundingStatus(c.Context())
	if err != nil {
		slog.Error("founding status query failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load founding status",
		})
	}
	return c.JSON(resp)
}
