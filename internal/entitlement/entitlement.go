// Package entitlement decides paid-tier access from stored user state.
// It is a pure read-side check: no database and no provider calls, because
// it runs on every content request.
package entitlement

import (
	"time"

	"github.com/exampartner/backend/internal/models"
)

// Status is the entitlement state of an account.
//
// ActiveUntil carries an absolute expiry and is authoritative: an expired
// ActiveUntil means no access even if the legacy paid flag is still set.
// LegacyPaid covers older accounts that only have the boolean flag.
type Status struct {
	kind  kind
	until time.Time
}

type kind int

const (
	kindFree kind = iota
	kindLegacyPaid
	kindActiveUntil
)

func Free() Status { return Status{kind: kindFree} }

func LegacyPaid() Status { return Status{kind: kindLegacyPaid} }

func ActiveUntil(t time.Time) Status { return Status{kind: kindActiveUntil, until: t} }

// ForUser translates stored columns into a Status. paid_until wins over
// the legacy flag whenever it is present.
func ForUser(u *models.User) Status {
	if u == nil {
		return Free()
	}
	if u.PaidUntil != nil {
		return ActiveUntil(*u.PaidUntil)
	}
	if u.IsPaid {
		return LegacyPaid()
	}
	return Free()
}

// ActiveAt reports whether the status grants paid access at the given time.
func (s Status) ActiveAt(now time.Time) bool {
	switch s.kind {
	case kindActiveUntil:
		return s.until.After(now)
	case kindLegacyPaid:
		return true
	default:
		return false
	}
}

// Active is ActiveAt(time.Now()).
func (s Status) Active() bool {
	return s.ActiveAt(time.Now())
}
