package engine

import (
	"errors"

	"cashcage/chips"
	"cashcage/store"
)

// Validation errors reject bad input before anything is appended.
var (
	ErrValidation          = errors.New("validation failed")
	ErrSubCentDenomination = chips.ErrSubCentDenomination
)

// Invariant violations are the guarantees the engine exists to enforce. They
// are rejected before any append and never bypassed.
var (
	ErrNegativeInventory   = chips.ErrNegativeInventory
	ErrInsufficientChips   = errors.New("insufficient chips in hand")
	ErrOverReturn          = errors.New("return exceeds chips with players")
	ErrOverSettlement      = errors.New("settlement exceeds outstanding credit")
	ErrCreditLimitExceeded = errors.New("session credit limit exceeded")
	ErrInventoryMismatch   = errors.New("opening chip value does not match opening float")
)

// Conflicts can succeed after the caller refreshes state and retries.
var (
	ErrInventoryAlreadySet = errors.New("opening inventory already set")
	ErrAlreadyReversed     = errors.New("transaction already reversed")
	ErrNotReversible       = errors.New("transaction cannot be reversed")
	ErrSessionBusy         = errors.New("session busy, retry")
	ErrSessionClosed       = errors.New("session is closed")
	ErrDuplicateReference  = errors.New("duplicate reference id")
	ErrRequestDecided      = errors.New("credit request already decided")
)

// Promotion outcomes.
var (
	ErrPromotionIneligible = errors.New("promotion not eligible")
	ErrBonusAlreadyClaimed = errors.New("bonus already claimed by player")
	ErrPromotionExhausted  = errors.New("promotion player limit reached")
)

// Error classes, used by the HTTP layer to pick a status code.
const (
	ClassValidation = "validation"
	ClassInvariant  = "invariant"
	ClassConflict   = "conflict"
	ClassNotFound   = "not_found"
	ClassFatal      = "fatal"
)

// Class buckets an engine error for the HTTP layer. Anything unknown is a
// persistence-level fatal: the operation was valid but could not commit.
func Class(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrSubCentDenomination),
		errors.Is(err, chips.ErrUnknownDenomination),
		errors.Is(err, chips.ErrNegativeCount),
		errors.Is(err, ErrPromotionIneligible):
		return ClassValidation
	case errors.Is(err, ErrNegativeInventory),
		errors.Is(err, ErrInsufficientChips),
		errors.Is(err, ErrOverReturn),
		errors.Is(err, ErrOverSettlement),
		errors.Is(err, ErrCreditLimitExceeded),
		errors.Is(err, ErrInventoryMismatch):
		return ClassInvariant
	case errors.Is(err, ErrInventoryAlreadySet),
		errors.Is(err, ErrAlreadyReversed),
		errors.Is(err, ErrNotReversible),
		errors.Is(err, ErrSessionBusy),
		errors.Is(err, ErrSessionClosed),
		errors.Is(err, ErrDuplicateReference),
		errors.Is(err, ErrRequestDecided),
		errors.Is(err, ErrBonusAlreadyClaimed),
		errors.Is(err, ErrPromotionExhausted),
		errors.Is(err, store.ErrDuplicate):
		return ClassConflict
	case errors.Is(err, store.ErrNotFound):
		return ClassNotFound
	default:
		return ClassFatal
	}
}
