package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/exampartner/backend/internal/dto"
	"github.com/exampartner/backend/internal/payments"
	"github.com/exampartner/backend/internal/paystack"
	"github.com/gofiber/fiber/v2"
)

// AdminHandler exposes the operator endpoints. Every action is written to
// the audit log before it runs, so the trail exists even when the action
// itself fails.
type AdminHandler struct {
	svc *payments.Service
}

func NewAdminHandler(svc *payments.Service) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Reconcile re-runs full verification for one reference. Unlike the
// webhook path it does not consult the replay guard, so it can recover
// deliveries that were receipted but failed verification upstream.
func (h *AdminHandler) Reconcile(c *fiber.Ctx) error {
	reference := strings.TrimSpace(c.Params("reference"))
	if reference == "" {
		return badRequest(c, "reference is required")
	}

	h.svc.Audit(c.Context(), "admin_reconcile", reference, c.IP(), c.Get(fiber.HeaderUserAgent), nil)

	outcome, err := h.svc.Reconcile(c.Context(), reference, "", "admin_reconcile")
	if err != nil {
		return h.renderAdminError(c, reference, err)
	}

	return c.JSON(fiber.Map{
		"ok":          true,
		"reference":   outcome.Reference,
		"identifier":  outcome.Identifier,
		"amount_kobo": outcome.AmountKobo,
		"paid_until":  outcome.PaidUntil.UTC(),
		"duplicate":   outcome.Duplicate,
	})
}

// Refund queues a provider-side refund for a reference.
func (h *AdminHandler) Refund(c *fiber.Ctx) error {
	var req dto.AdminRefundRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Reference = strings.TrimSpace(req.Reference)
	if req.Reference == "" {
		return badRequest(c, "reference is required")
	}

	h.svc.Audit(c.Context(), "admin_refund", req.Reference, c.IP(), c.Get(fiber.HeaderUserAgent), req)

	var amount int64
	if req.AmountKobo != nil {
		amount = *req.AmountKobo
	}
	resp, err := h.svc.QueueRefund(c.Context(), req.Reference, amount, req.CustomerNote, req.MerchantNote)
	if err != nil {
		return h.renderAdminError(c, req.Reference, err)
	}

	return c.JSON(fiber.Map{
		"ok":        true,
		"reference": req.Reference,
		"status":    "refund_queued",
		"provider":  json.RawMessage(resp),
	})
}

// MarkPaid grants access directly, bypassing provider verification. The
// audit entry is the only record of why, so it is written unconditionally.
func (h *AdminHandler) MarkPaid(c *fiber.Ctx) error {
	identifier := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if identifier == "" {
		return badRequest(c, "email query parameter is required")
	}

	h.svc.Audit(c.Context(), "admin_mark_paid", "", c.IP(), c.Get(fiber.HeaderUserAgent), fiber.Map{"identifier": identifier})

	if err := h.svc.MarkPaid(c.Context(), identifier); err != nil {
		if errors.Is(err, payments.ErrUnknownUser) {
			return badRequest(c, "No account matches this identifier")
		}
		slog.Error("admin mark-paid failed", "identifier", identifier, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to mark paid",
		})
	}
	return c.JSON(fiber.Map{"ok": true, "identifier": identifier})
}

// AuditLog returns recent admin actions, newest first. Reading the log is
// itself audited.
func (h *AdminHandler) AuditLog(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 100)
	if limit < 1 {
		limit = 1
	}
	if limit > 500 {
		limit = 500
	}

	h.svc.Audit(c.Context(), "admin_view_audit", "", c.IP(), c.Get(fiber.HeaderUserAgent), nil)

	entries, err := h.svc.AuditLog(c.Context(), limit)
	if err != nil {
		slog.Error("audit log query failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load audit log",
		})
	}
	return c.JSON(fiber.Map{"ok": true, "limit": limit, "entries": entries})
}

func (h *AdminHandler) renderAdminError(c *fiber.Ctx, reference string, err error) error {
	var upstream *paystack.UpstreamError
	switch {
	case errors.As(err, &upstream):
		slog.Error("admin action upstream failure", "reference", reference, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: "Payment provider unavailable",
		})
	case errors.Is(err, payments.ErrNotQualifying):
		return badRequest(c, "Payment did not qualify for access")
	case errors.Is(err, payments.ErrUnresolvableIdentifier):
		return badRequest(c, "Could not determine the account for this payment")
	case errors.Is(err, payments.ErrUnknownUser):
		return badRequest(c, "No account matches this payment")
	default:
		slog.Error("admin action failed", "reference", reference, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Action failed",
		})
	}
}
