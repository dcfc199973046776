package models

import (
	"time"
)

// User is an ExamPartner account. Identifier is a lowercased email or
// phone number; Email may be back-filled later from payment data when the
// identifier is not email-shaped.
//
// IsPaid is the legacy entitlement flag kept for older accounts. When
// PaidUntil is set it is authoritative for access gating; see the
// entitlement package.
type User struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	Identifier string     `gorm:"size:255;not null;uniqueIndex" json:"identifier"`
	Password   string     `gorm:"not null" json:"-"`
	IsPaid     bool       `gorm:"not null;default:false" json:"is_paid"`
	PaidUntil  *time.Time `json:"paid_until"`
	Plan       string     `gorm:"size:50;not null;default:'free'" json:"plan"`
	IsFounding bool       `gorm:"not null;default:false" json:"is_founding"`
	Email      *string    `gorm:"size:255" json:"email"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
