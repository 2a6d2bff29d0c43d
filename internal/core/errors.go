package core

import (
	"errors"
	"fmt"
)

// Two error bases classify every domain failure: ErrValidation for requests
// that are rejected before any state change, ErrNotFound for references to
// absent or soft-deleted rows. errors.Is against a base matches every
// sentinel built on it.
var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
)

var (
	ErrInvalidAmount          = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidCurrency        = fmt.Errorf("%w: invalid currency code", ErrValidation)
	ErrCurrencyMismatch       = fmt.Errorf("%w: currency mismatch", ErrValidation)
	ErrInvalidRatios          = fmt.Errorf("%w: allocation ratios must be positive", ErrValidation)
	ErrSelfTransfer           = fmt.Errorf("%w: transfer source and destination are the same account", ErrValidation)
	ErrMissingTransferAccount = fmt.Errorf("%w: transfer requires a destination account", ErrValidation)
	ErrEmptyDescription       = fmt.Errorf("%w: empty description", ErrValidation)
	ErrAccountInUse           = fmt.Errorf("%w: account has live transactions", ErrValidation)

	ErrAccountNotFound     = fmt.Errorf("account %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrBudgetNotFound      = fmt.Errorf("budget %w", ErrNotFound)
)

func errInvalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// DriftError reports a disagreement between an account's cached balance and
// the balance recomputed from its live transactions. It is never produced by
// normal operation and is never silently healed; callers decide whether to
// trust the cached value or force a recompute.
type DriftError struct {
	AccountID int64
	Cached    Money
	Computed  Money
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("balance drift on account %d: cached %s, computed %s",
		e.AccountID, e.Cached, e.Computed)
}
