package handlers

import (
	"errors"
	"log/slog"

	"github.com/exampartner/backend/internal/dto"
	"github.com/exampartner/backend/internal/entitlement"
	"github.com/exampartner/backend/internal/middleware"
	"github.com/exampartner/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type QuestionHandler struct {
	questions *services.QuestionService
	auth      *services.AuthService
}

func NewQuestionHandler(questions *services.QuestionService, auth *services.AuthService) *QuestionHandler {
	return &QuestionHandler{questions: questions, auth: auth}
}

// paidActive resolves the caller's entitlement. Anonymous callers and
// callers whose account vanished are treated as free.
func (h *QuestionHandler) paidActive(c *fiber.Ctx) bool {
	identifier := middleware.Identifier(c)
	if identifier == "" {
		return false
	}
	user, err := h.auth.CurrentUser(c.Context(), identifier)
	if err != nil || user == nil {
		return false
	}
	return entitlement.ForUser(user).Active()
}

func (h *QuestionHandler) Objective(c *fiber.Ctx) error {
	return h.list(c, "objective")
}

func (h *QuestionHandler) Theory(c *fiber.Ctx) error {
	return h.list(c, "theory")
}

func (h *QuestionHandler) list(c *fiber.Ctx, qtype string) error {
	query := services.QuestionQuery{
		QType:   qtype,
		Exam:    c.Query("exam"),
		Year:    c.QueryInt("year", 0),
		Subject: c.Query("subject"),
		Limit:   c.QueryInt("limit", 0),
		Offset:  c.QueryInt("offset", 0),
	}

	resp, err := h.questions.List(c.Context(), query, h.paidActive(c))
	if err != nil {
		if errors.Is(err, services.ErrPreviewLimitReached) {
			return c.Status(fiber.StatusPaymentRequired).JSON(dto.ErrorResponse{
				Error: true, Message: "Free preview limit reached, upgrade to continue",
			})
		}
		slog.Error("question list failed", "qtype", qtype, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load questions",
		})
	}
	return c.JSON(resp)
}

func (h *QuestionHandler) Get(c *fiber.Ctx) error {
	question, err := h.questions.Get(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, services.ErrQuestionNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
				Error: true, Message: "Question not found",
			})
		}
		slog.Error("question lookup failed", "id", c.Params("id"), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load question",
		})
	}
	return c.JSON(question)
}

func (h *QuestionHandler) Filters(c *fiber.Ctx) error {
	resp, err := h.questions.Filters(c.Context(), c.Query("qtype"), c.Query("exam"), c.QueryInt("year", 0))
	if err != nil {
		slog.Error("filters query failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load filters",
		})
	}
	return c.JSON(resp)
}
