package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/exampartner/backend/internal/config"
	"github.com/exampartner/backend/internal/dto"
	"github.com/exampartner/backend/internal/middleware"
	"github.com/exampartner/backend/internal/payments"
	"github.com/exampartner/backend/internal/paystack"
	"github.com/gofiber/fiber/v2"
)

type PaymentHandler struct {
	svc *payments.Service
	cfg *config.Config
}

func NewPaymentHandler(svc *payments.Service, cfg *config.Config) *PaymentHandler {
	return &PaymentHandler{svc: svc, cfg: cfg}
}

// PublicKey hands the frontend the key it needs to open the checkout.
func (h *PaymentHandler) PublicKey(c *fiber.Ctx) error {
	return c.JSON(dto.PublicKeyResponse{OK: true, PublicKey: h.cfg.PaystackPublicKey})
}

// Verify is the client-initiated confirmation after checkout. The body is
// only a hint: the reference is re-verified with the provider before any
// entitlement changes.
func (h *PaymentHandler) Verify(c *fiber.Ctx) error {
	var req dto.VerifyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	req.Reference = strings.TrimSpace(req.Reference)
	if req.Reference == "" {
		return badRequest(c, "reference is required")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" {
		return badRequest(c, "email is required")
	}

	outcome, err := h.svc.Reconcile(c.Context(), req.Reference, req.Email, "client_verify")
	if err != nil {
		return h.renderReconcileError(c, req.Reference, err)
	}

	return c.JSON(dto.VerifyResponse{
		OK:         true,
		Reference:  outcome.Reference,
		Email:      outcome.Identifier,
		AmountKobo: outcome.AmountKobo,
	})
}

func (h *PaymentHandler) renderReconcileError(c *fiber.Ctx, reference string, err error) error {
	var upstream *paystack.UpstreamError
	switch {
	case errors.As(err, &upstream):
		slog.Error("payment verification upstream failure", "reference", reference, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: "Payment provider unavailable, try again shortly",
		})
	case errors.Is(err, payments.ErrNotQualifying):
		return badRequest(c, "Payment did not qualify for access")
	case errors.Is(err, payments.ErrUnresolvableIdentifier):
		return badRequest(c, "Could not determine the account for this payment")
	case errors.Is(err, payments.ErrUnknownUser):
		return badRequest(c, "No account matches this payment")
	default:
		slog.Error("payment verification failed", "reference", reference, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Verification failed",
		})
	}
}

type webhookAck struct {
	OK bool `json:"ok"`
	*payments.WebhookResult
}

// Webhook receives provider event deliveries. The signature covers the raw
// body, so it is checked before any parsing; after that the handler always
// acknowledges with 200 unless local storage itself failed, in which case a
// 500 asks the provider to redeliver.
func (h *PaymentHandler) Webhook(c *fiber.Ctx) error {
	rawBody := c.Body()
	signature := c.Get("x-paystack-signature")

	if !paystack.VerifySignature(rawBody, signature, h.cfg.PaystackSecretKey) {
		slog.Warn("webhook rejected: bad signature", "ip", c.IP())
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid signature",
		})
	}

	var event payments.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		// Signed but unparseable. Ack so the provider does not loop on it.
		slog.Error("webhook body not parseable", "error", err)
		return c.JSON(webhookAck{OK: true, WebhookResult: &payments.WebhookResult{Ignored: "unparseable"}})
	}

	result, err := h.svc.HandleWebhook(c.Context(), rawBody, &event)
	if err != nil {
		slog.Error("webhook processing failed", "event", event.Event, "reference", event.Reference(), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Webhook processing failed",
		})
	}

	return c.JSON(webhookAck{OK: true, WebhookResult: result})
}

// History lists the authenticated caller's payment ledger rows.
func (h *PaymentHandler) History(c *fiber.Ctx) error {
	identifier := middleware.Identifier(c)

	limit := c.QueryInt("limit", 50)
	if limit < 1 {
		limit = 1
	}
	if limit > 200 {
		limit = 200
	}

	rows, err := h.svc.History(c.Context(), identifier, limit)
	if err != nil {
		if errors.Is(err, payments.ErrUnknownUser) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Not authenticated",
			})
		}
		slog.Error("payment history query failed", "identifier", identifier, "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to load payment history",
		})
	}

	items := make([]dto.PaymentHistoryItem, 0, len(rows))
	for _, p := range rows {
		items = append(items, dto.PaymentHistoryItem{
			Provider:   p.Provider,
			Reference:  p.Reference,
			Amount:     p.AmountKobo / 100,
			AmountKobo: p.AmountKobo,
			Currency:   p.Currency,
			Status:     p.Status,
			CreatedAt:  p.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(dto.PaymentHistoryResponse{OK: true, Limit: limit, Items: items})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: true, Message: msg})
}
