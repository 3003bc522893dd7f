// Package store defines the persistence boundary of the ledger engine. The
// engine only needs an ordered, durable, append-only transaction log plus a
// handful of keyed lookups; whether that is Postgres or an in-memory map is an
// implementation choice.
package store

import (
	"errors"
	"time"

	"cashcage/models"
)

var (
	// ErrNotFound is returned when a keyed lookup matches nothing.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("store: duplicate")
	// ErrExhausted is returned by ClaimBonus when the promotion's player
	// limit is already reached.
	ErrExhausted = errors.New("store: promotion exhausted")
)

// Store is the durable state the engine folds over. Append operations must be
// durable before they return nil.
type Store interface {
	// Atomic runs fn against a transactional view of the store. Either every
	// write inside fn commits or none do.
	Atomic(fn func(Store) error) error

	CreateSession(s *models.Session) error
	SessionByID(sessionID string) (*models.Session, error)
	SessionByCashierDate(cashierCode, date string) (*models.Session, error)
	SaveSession(s *models.Session) error
	OpenSessionsBefore(t time.Time) ([]models.Session, error)

	AppendTransaction(t *models.Transaction) error
	TransactionsBySession(sessionID string) ([]models.Transaction, error)
	TransactionByID(transactionID string) (*models.Transaction, error)
	TransactionByRef(sessionID, refID string) (*models.Transaction, error)
	MarkReversed(transactionID, reason string) error

	AppendAdjustment(a *models.ChipAdjustment) error
	AdjustmentsBySession(sessionID string) ([]models.ChipAdjustment, error)

	CreditAccount(sessionID, playerCode string) (*models.CreditAccount, error)
	CreditAccountsBySession(sessionID string) ([]models.CreditAccount, error)
	SaveCreditAccount(a *models.CreditAccount) error

	CreditLimit(sessionID string) (*models.CreditLimit, error)
	SaveCreditLimit(l *models.CreditLimit) error

	CreateCreditRequest(r *models.CreditRequest) error
	CreditRequestByID(requestID string) (*models.CreditRequest, error)
	SaveCreditRequest(r *models.CreditRequest) error
	PendingCreditRequests(sessionID string) ([]models.CreditRequest, error)
	PendingCreditRequestsBefore(t time.Time) ([]models.CreditRequest, error)

	CreatePromotion(p *models.Promotion) error
	PromotionByCode(code string) (*models.Promotion, error)
	ActivePromotions() ([]models.Promotion, error)
	// ClaimBonus atomically records the claim and increments the promotion's
	// usage counter. Fails with ErrDuplicate if the player already claimed
	// this promotion, ErrExhausted if the player limit is reached.
	ClaimBonus(claim *models.BonusClaim) error
	HasClaim(promotionID uint, playerCode string) (bool, error)
	ClaimByTransaction(transactionID string) (*models.BonusClaim, error)
	// RemoveClaim deletes the claim tied to a reversed transaction and
	// decrements the promotion usage counter.
	RemoveClaim(transactionID string) error

	CreateCashier(c *models.Cashier) error
	CashierByCode(code string) (*models.Cashier, error)
}
