package models

import "time"

// WebhookReceipt is the replay-guard marker: one row per webhook reference,
// written on first delivery and never updated. Existence means "already
// processed".
type WebhookReceipt struct {
	Reference string    `gorm:"size:255;primaryKey" json:"reference"`
	EventType string    `gorm:"size:100" json:"event_type"`
	BodyHash  string    `gorm:"size:64" json:"body_hash"`
	CreatedAt time.Time `json:"created_at"`
}
