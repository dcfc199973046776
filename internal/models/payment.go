package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Payment is one row per provider transaction reference. The unique index
// on Reference is what makes duplicate webhook deliveries an update, never
// a second insert.
type Payment struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	Provider   string         `gorm:"size:50;not null" json:"provider"`
	Reference  string         `gorm:"size:255;not null;uniqueIndex" json:"reference"`
	AmountKobo int64          `gorm:"not null" json:"amount_kobo"`
	Currency   string         `gorm:"size:10;not null" json:"currency"`
	Status     string         `gorm:"size:50;not null" json:"status"`
	Raw        datatypes.JSON `gorm:"type:jsonb" json:"-"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	User       User           `gorm:"foreignKey:UserID" json:"-"`
}
