package payments

import (
	"context"

	"github.com/exampartner/backend/internal/models"
)

// UserStore is the entitlement side of the users table. Mutations here are
// only ever driven by the reconciliation engine and admin actions.
type UserStore interface {
	// ByIdentifier looks a user up case-insensitively. ErrNotFound when absent.
	ByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	// Update applies the given column values to one user.
	Update(ctx context.Context, userID uint, fields map[string]interface{}) error
	// CountFounding returns how many accounts carry the founding flag.
	CountFounding(ctx context.Context) (int64, error)
}

// PaymentStore is the append/update ledger keyed by provider reference.
type PaymentStore interface {
	ByReference(ctx context.Context, reference string) (*models.Payment, error)
	// Create inserts a ledger row; a concurrent insert for the same
	// reference is a silent no-op (uniqueness lives in the schema).
	Create(ctx context.Context, p *models.Payment) error
	UpdateStatus(ctx context.Context, reference, status string, raw []byte) error
	ListByUser(ctx context.Context, userID uint, limit int) ([]models.Payment, error)
}

// ReceiptStore is the webhook replay guard.
type ReceiptStore interface {
	Seen(ctx context.Context, reference string) (bool, error)
	// Record is insert-if-absent so duplicate deliveries never conflict.
	Record(ctx context.Context, reference, eventType, bodyHash string) error
}

// AuditStore is the append-only admin action log.
type AuditStore interface {
	Append(ctx context.Context, entry *models.AdminAuditEntry) error
	List(ctx context.Context, limit int) ([]models.AdminAuditEntry, error)
}
