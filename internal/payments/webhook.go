package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"strings"

	"github.com/exampartner/backend/internal/paystack"
)

// WebhookEvent is the typed shape of a Paystack webhook delivery. Only the
// event name and reference are load-bearing here; the transaction details
// in the payload are never trusted: Reconcile re-verifies with the
// provider.
type WebhookEvent struct {
	Event string           `json:"event"`
	Data  WebhookEventData `json:"data"`
}

type WebhookEventData struct {
	Reference   string              `json:"reference"`
	Transaction *WebhookTransaction `json:"transaction"`
}

type WebhookTransaction struct {
	Reference string `json:"reference"`
}

// Reference returns the payment reference, falling back to the nested
// transaction object that refund events carry.
func (e *WebhookEvent) Reference() string {
	if ref := strings.TrimSpace(e.Data.Reference); ref != "" {
		return ref
	}
	if e.Data.Transaction != nil {
		return strings.TrimSpace(e.Data.Transaction.Reference)
	}
	return ""
}

// WebhookResult is the acknowledgement body for a processed delivery.
// Webhooks prefer acknowledging over erroring: the provider retries
// aggressively on non-2xx and everything except a bad signature is
// recoverable by redelivery.
type WebhookResult struct {
	Event     string `json:"event,omitempty"`
	Reference string `json:"reference,omitempty"`
	Ignored   string `json:"ignored,omitempty"`
	Refunded  bool   `json:"refunded,omitempty"`
	Verified  *bool  `json:"verified,omitempty"`
	Paid      *bool  `json:"paid,omitempty"`
}

// HandleWebhook processes one signature-verified delivery: replay guard,
// refund branch, otherwise full reconciliation.
//
// The seen/record pair is not atomic against a truly concurrent duplicate
// for the same reference; that window is accepted because the downstream
// mutations are themselves idempotent (insert-if-absent ledger row,
// idempotent entitlement grant).
func (s *Service) HandleWebhook(ctx context.Context, rawBody []byte, event *WebhookEvent) (*WebhookResult, error) {
	result := &WebhookResult{Event: event.Event}

	reference := event.Reference()
	if reference == "" {
		result.Ignored = "no_reference"
		return result, nil
	}
	result.Reference = reference

	seen, err := s.receipts.Seen(ctx, reference)
	if err != nil {
		return nil, err
	}
	if seen {
		result.Ignored = "replay"
		return result, nil
	}

	bodyHash := sha256.Sum256(rawBody)
	if err := s.receipts.Record(ctx, reference, event.Event, hex.EncodeToString(bodyHash[:])); err != nil {
		return nil, err
	}

	if strings.Contains(strings.ToLower(event.Event), "refund") {
		return s.handleRefundEvent(ctx, reference, rawBody, result)
	}

	_, err = s.Reconcile(ctx, reference, "", "webhook:"+event.Event)
	switch {
	case err == nil:
		result.Verified = boolPtr(true)
		result.Paid = boolPtr(true)
		return result, nil
	case isUpstreamError(err):
		// Provider unreachable or unhelpful right now; ack and let the
		// redelivery retry the verification.
		slog.Warn("webhook verification failed upstream", "reference", reference, "error", err)
		result.Verified = boolPtr(false)
		return result, nil
	case errors.Is(err, ErrNotQualifying):
		slog.Info("webhook payment not qualifying", "reference", reference, "error", err)
		result.Verified = boolPtr(true)
		// paid mirrors the transaction status alone: a successful charge
		// below the floor acks paid even though nothing was granted.
		result.Paid = boolPtr(errors.Is(err, ErrAmountBelowMinimum))
		return result, nil
	case errors.Is(err, ErrUnresolvableIdentifier), errors.Is(err, ErrUnknownUser):
		// Best effort: payment is real but cannot be attached to an
		// account yet. Admin reconcile can re-run this later.
		slog.Warn("webhook payment without resolvable account", "reference", reference, "error", err)
		result.Verified = boolPtr(true)
		result.Paid = boolPtr(true)
		return result, nil
	default:
		return nil, err
	}
}

func (s *Service) handleRefundEvent(ctx context.Context, reference string, rawBody []byte, result *WebhookResult) (*WebhookResult, error) {
	if err := s.payments.UpdateStatus(ctx, reference, "refunded", rawBody); err != nil {
		return nil, err
	}
	result.Refunded = true

	if !s.opts.AutoDowngradeOnRefund {
		return result, nil
	}

	payment, err := s.payments.ByReference(ctx, reference)
	if errors.Is(err, ErrNotFound) {
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	if err := s.users.Update(ctx, payment.UserID, map[string]interface{}{"is_paid": false}); err != nil {
		return nil, err
	}
	slog.Info("user downgraded on refund", "reference", reference, "user_id", payment.UserID)
	return result, nil
}

func isUpstreamError(err error) bool {
	var upstream *paystack.UpstreamError
	return errors.As(err, &upstream)
}

func boolPtr(b bool) *bool { return &b }
