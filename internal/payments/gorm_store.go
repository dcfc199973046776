package payments

import (
	"context"
	"errors"
	"strings"

	"github.com/exampartner/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORM-backed implementations of the store interfaces. The database is the
// sole synchronization point: reference uniqueness and insert-if-absent
// semantics are enforced here, not in application logic.

type gormUserStore struct{ db *gorm.DB }

func NewGormUserStore(db *gorm.DB) UserStore { return &gormUserStore{db: db} }

func (s *gormUserStore) ByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).
		Where("lower(identifier) = ?", strings.ToLower(strings.TrimSpace(identifier))).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *gormUserStore) Update(ctx context.Context, userID uint, fields map[string]interface{}) error {
	return s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(fields).Error
}

func (s *gormUserStore) CountFounding(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("is_founding = ?", true).Count(&count).Error
	return count, err
}

type gormPaymentStore struct{ db *gorm.DB }

func NewGormPaymentStore(db *gorm.DB) PaymentStore { return &gormPaymentStore{db: db} }

func (s *gormPaymentStore) ByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var p models.Payment
	err := s.db.WithContext(ctx).Where("reference = ?", reference).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *gormPaymentStore) Create(ctx context.Context, p *models.Payment) error {
	// Losing a concurrent race on the unique reference is a no-op, which
	// keeps duplicate webhook deliveries idempotent without locking.
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "reference"}}, DoNothing: true}).
		Create(p).Error
}

func (s *gormPaymentStore) UpdateStatus(ctx context.Context, reference, status string, raw []byte) error {
	fields := map[string]interface{}{"status": status}
	if len(raw) > 0 {
		fields["raw"] = raw
	}
	return s.db.WithContext(ctx).Model(&models.Payment{}).
		Where("reference = ?", reference).Updates(fields).Error
}

func (s *gormPaymentStore) ListByUser(ctx context.Context, userID uint, limit int) ([]models.Payment, error) {
	var items []models.Payment
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}

type gormReceiptStore struct{ db *gorm.DB }

func NewGormReceiptStore(db *gorm.DB) ReceiptStore { return &gormReceiptStore{db: db} }

func (s *gormReceiptStore) Seen(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.WebhookReceipt{}).
		Where("reference = ?", reference).Count(&count).Error
	return count > 0, err
}

func (s *gormReceiptStore) Record(ctx context.Context, reference, eventType, bodyHash string) error {
	receipt := models.WebhookReceipt{
		Reference: reference,
		EventType: eventType,
		BodyHash:  bodyHash,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&receipt).Error
}

type gormAuditStore struct{ db *gorm.DB }

func NewGormAuditStore(db *gorm.DB) AuditStore { return &gormAuditStore{db: db} }

func (s *gormAuditStore) Append(ctx context.Context, entry *models.AdminAuditEntry) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *gormAuditStore) List(ctx context.Context, limit int) ([]models.AdminAuditEntry, error) {
	var items []models.AdminAuditEntry
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&items).Error
	return items, err
}
