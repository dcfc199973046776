// Package payments is the payment reconciliation and entitlement
// subsystem: replay-safe webhook processing, authoritative re-verification
// against Paystack, the payment ledger, and the admin audit log.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/exampartner/backend/internal/models"
	"github.com/exampartner/backend/internal/paystack"
)

// Gateway is the outbound provider surface the engine needs.
type Gateway interface {
	VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error)
	Refund(ctx context.Context, req paystack.RefundRequest) (json.RawMessage, error)
}

// Options is the reconciliation policy, fixed at construction.
type Options struct {
	// MinAmountKobo is the minor-unit floor below which a successful
	// transaction still grants nothing.
	MinAmountKobo int64
	// AutoDowngradeOnRefund revokes entitlement when a refund event
	// arrives. Off by default: grace-period policy, not a bug.
	AutoDowngradeOnRefund bool
	// PaidPlanDays is how far each qualifying payment extends paid_until.
	PaidPlanDays int
	// FoundingCap closes the founding cohort once reached.
	FoundingCap int
}

// Service is the reconciliation engine. Every entry point (client verify,
// webhook, admin reconcile) funnels into Reconcile, which re-asks the
// provider for ground truth before touching any local state.
type Service struct {
	users    UserStore
	payments PaymentStore
	receipts ReceiptStore
	audits   AuditStore
	gateway  Gateway
	opts     Options
	now      func() time.Time
}

func NewService(users UserStore, payments PaymentStore, receipts ReceiptStore, audits AuditStore, gateway Gateway, opts Options) *Service {
	if opts.PaidPlanDays <= 0 {
		opts.PaidPlanDays = 30
	}
	return &Service{
		users:    users,
		payments: payments,
		receipts: receipts,
		audits:   audits,
		gateway:  gateway,
		opts:     opts,
		now:      time.Now,
	}
}

// Outcome describes a completed entitlement grant.
type Outcome struct {
	Reference  string
	Identifier string
	AmountKobo int64
	Currency   string
	PaidUntil  time.Time
	// Duplicate is set when the ledger already had a row for the
	// reference; the legacy flag is re-asserted but no further plan time
	// is granted.
	Duplicate bool
}

// Reconcile drives the authoritative state transition for one payment
// reference. The caller's claim about the payment is never trusted:
// the provider is always re-queried first.
//
// identifierHint is a caller-declared fallback (the /verify body email);
// the provider's customer email takes precedence, then the hint, then the
// transaction metadata identifier.
func (s *Service) Reconcile(ctx context.Context, reference, identifierHint, source string) (*Outcome, error) {
	txn, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(txn.Status, "success") {
		return nil, fmt.Errorf("%w: status %q", ErrNotQualifying, txn.Status)
	}
	if txn.Amount < s.opts.MinAmountKobo {
		return nil, fmt.Errorf("%w: got %d, floor %d", ErrAmountBelowMinimum, txn.Amount, s.opts.MinAmountKobo)
	}

	identifier := resolveIdentifier(txn, identifierHint)
	if identifier == "" {
		return nil, ErrUnresolvableIdentifier
	}

	user, err := s.users.ByIdentifier(ctx, identifier)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUser, identifier)
	}
	if err != nil {
		return nil, err
	}

	// The ledger row is written first: its reference uniqueness is what
	// makes the grant once-per-reference, no matter how many verify calls
	// or webhook deliveries race for the same payment.
	duplicate, err := s.upsertPayment(ctx, user.ID, txn, source)
	if err != nil {
		return nil, err
	}

	paidUntil, err := s.grantEntitlement(ctx, user, identifier, !duplicate)
	if err != nil {
		return nil, err
	}

	slog.Info("payment reconciled",
		"reference", reference,
		"identifier", identifier,
		"amount_kobo", txn.Amount,
		"source", source,
		"duplicate", duplicate)

	return &Outcome{
		Reference:  txn.Reference,
		Identifier: identifier,
		AmountKobo: txn.Amount,
		Currency:   txn.Currency,
		PaidUntil:  paidUntil,
		Duplicate:  duplicate,
	}, nil
}

func resolveIdentifier(txn *paystack.Transaction, hint string) string {
	for _, candidate := range []string{txn.Customer.Email, hint, txn.Metadata.Identifier} {
		if c := strings.ToLower(strings.TrimSpace(candidate)); c != "" {
			return c
		}
	}
	return ""
}

// grantEntitlement sets the paid columns. The paid_until extension (from
// whichever is later of now and the current expiry), plan tag, and the
// one-way founding flag are applied only for a reference the ledger had
// not seen (extend); replays of the same payment cannot stack time. The
// legacy flag is asserted and email back-filled on every pass, both
// idempotent.
func (s *Service) grantEntitlement(ctx context.Context, user *models.User, identifier string, extend bool) (time.Time, error) {
	now := s.now()

	fields := map[string]interface{}{"is_paid": true}

	paidUntil := now
	if user.PaidUntil != nil {
		paidUntil = *user.PaidUntil
	}

	if extend {
		base := now
		if user.PaidUntil != nil && user.PaidUntil.After(now) {
			base = *user.PaidUntil
		}
		paidUntil = base.AddDate(0, 0, s.opts.PaidPlanDays)
		fields["paid_until"] = paidUntil
		fields["plan"] = "premium"

		if !user.IsFounding && s.opts.FoundingCap > 0 {
			count, err := s.users.CountFounding(ctx)
			if err == nil && count < int64(s.opts.FoundingCap) {
				fields["is_founding"] = true
				fields["plan"] = "founding"
			}
		}
	}

	if user.Email == nil && isEmail(identifier) {
		fields["email"] = identifier
	}

	if err := s.users.Update(ctx, user.ID, fields); err != nil {
		return time.Time{}, err
	}
	return paidUntil, nil
}

func (s *Service) upsertPayment(ctx context.Context, userID uint, txn *paystack.Transaction, source string) (bool, error) {
	existing, err := s.payments.ByReference(ctx, txn.Reference)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}
	if existing != nil {
		// Duplicate delivery: refresh status only, never a second row.
		return true, s.payments.UpdateStatus(ctx, txn.Reference, strings.ToLower(txn.Status), txn.Raw)
	}

	currency := strings.ToUpper(strings.TrimSpace(txn.Currency))
	if currency == "" {
		currency = "NGN"
	}

	payment := models.Payment{
		UserID:     userID,
		Provider:   providerName(source),
		Reference:  txn.Reference,
		AmountKobo: txn.Amount,
		Currency:   currency,
		Status:     strings.ToLower(txn.Status),
		Raw:        []byte(txn.Raw),
	}
	return false, s.payments.Create(ctx, &payment)
}

func providerName(source string) string {
	if source == "" {
		return "paystack"
	}
	return "paystack:" + source
}

func isEmail(v string) bool {
	at := strings.Index(v, "@")
	return at > 0 && strings.Contains(v[at+1:], ".")
}

// QueueRefund asks the provider to refund a transaction and marks the
// local ledger row "refund_queued". The authoritative "refunded" status
// arrives later through the webhook.
func (s *Service) QueueRefund(ctx context.Context, reference string, amountKobo int64, customerNote, merchantNote string) (json.RawMessage, error) {
	resp, err := s.gateway.Refund(ctx, paystack.RefundRequest{
		Transaction:  reference,
		Amount:       amountKobo,
		CustomerNote: customerNote,
		MerchantNote: merchantNote,
	})
	if err != nil {
		return nil, err
	}

	if err := s.payments.UpdateStatus(ctx, reference, "refund_queued", resp); err != nil {
		slog.Error("failed to mark payment refund_queued", "reference", reference, "error", err)
	}
	return resp, nil
}

// MarkPaid is the admin escape hatch: a direct grant with no provider
// verification. Callers must audit it.
func (s *Service) MarkPaid(ctx context.Context, identifier string) error {
	user, err := s.users.ByIdentifier(ctx, identifier)
	if errors.Is(err, ErrNotFound) {
		return ErrUnknownUser
	}
	if err != nil {
		return err
	}
	return s.users.Update(ctx, user.ID, map[string]interface{}{"is_paid": true})
}

// History returns the caller's ledger rows, newest first.
func (s *Service) History(ctx context.Context, identifier string, limit int) ([]models.Payment, error) {
	user, err := s.users.ByIdentifier(ctx, identifier)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUnknownUser
	}
	if err != nil {
		return nil, err
	}
	return s.payments.ListByUser(ctx, user.ID, limit)
}

// Audit writes an admin audit entry. Best effort by contract: a failed
// write is logged and deliberately not surfaced, so auditing can never
// fail the admin request that triggered it.
func (s *Service) Audit(ctx context.Context, action, reference, actorIP, userAgent string, payload interface{}) {
	entry := models.AdminAuditEntry{
		Action:    action,
		Reference: reference,
		ActorIP:   actorIP,
		UserAgent: userAgent,
	}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			entry.Payload = b
		}
	}
	if err := s.audits.Append(ctx, &entry); err != nil {
		slog.Error("audit write failed", "action", action, "reference", reference, "error", err)
	}
}

// AuditLog reads back recent audit entries for the admin endpoint.
func (s *Service) AuditLog(ctx context.Context, limit int) ([]models.AdminAuditEntry, error) {
	return s.audits.List(ctx, limit)
}
