package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AdminAuditEntry is an append-only record of a privileged admin action.
// Business logic only writes these; they are read back solely by the
// admin audit endpoint.
type AdminAuditEntry struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Action    string         `gorm:"size:100;not null;index" json:"action"`
	Reference string         `gorm:"size:255" json:"reference"`
	ActorIP   string         `gorm:"size:64" json:"actor_ip"`
	UserAgent string         `gorm:"size:512" json:"user_agent"`
	Payload   datatypes.JSON `gorm:"type:jsonb" json:"payload"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}
