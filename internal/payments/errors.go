package payments

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrNotQualifying: the provider confirmed the transaction but it does
	// not meet the grant conditions (status not success, or amount below
	// the configured floor). Never results in an entitlement change.
	ErrNotQualifying = errors.New("payment not qualifying")

	// ErrAmountBelowMinimum is the floor case of ErrNotQualifying: the
	// transaction itself succeeded, only the amount disqualifies it.
	ErrAmountBelowMinimum = fmt.Errorf("%w: amount below minimum", ErrNotQualifying)

	// ErrUnresolvableIdentifier: no customer email, caller hint, or
	// metadata identifier on the verified transaction.
	ErrUnresolvableIdentifier = errors.New("no identifier resolvable for transaction")

	// ErrUnknownUser: the resolved identifier has no account yet. Logged,
	// never fatal; the payment may precede registration.
	ErrUnknownUser = errors.New("no account for identifier")
)
