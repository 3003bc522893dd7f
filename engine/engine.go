// Package engine implements the cashier session ledger: an append-only
// transaction log per session, with wallet balances, chip inventory, and
// credit exposure derived from the log on every read. No component keeps a
// running balance, so the projections cannot drift from the ledger.
package engine

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"cashcage/models"
	"cashcage/store"
)

const defaultLockTimeout = 3 * time.Second

// Config carries the engine tunables read from the environment at startup.
type Config struct {
	// AutoApproveLimit is the largest credit amount a cashier may issue
	// without administrator approval.
	AutoApproveLimit decimal.Decimal
	// LockTimeout bounds how long a mutation waits for the session slot
	// before failing with ErrSessionBusy.
	LockTimeout time.Duration
}

// Notifier receives an invalidation signal after every successful append so
// consumers can refresh projections instead of polling.
type Notifier interface {
	SessionChanged(sessionID, event string)
}

type Engine struct {
	st       store.Store
	locks    *lockTable
	notifier Notifier
	cfg      Config
}

func New(st store.Store, cfg Config, notifier Notifier) *Engine {
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = defaultLockTimeout
	}
	return &Engine{
		st:       st,
		locks:    newLockTable(),
		notifier: notifier,
		cfg:      cfg,
	}
}

// Store exposes the underlying store for read-only consumers (reporting,
// jobs). Mutations must go through the engine.
func (e *Engine) Store() store.Store {
	return e.st
}

func (e *Engine) notify(sessionID, event string) {
	if e.notifier != nil {
		e.notifier.SessionChanged(sessionID, event)
	}
}

// mutate serializes the call on the session slot and runs fn inside one
// atomic store scope. fn either commits everything it writes or nothing.
func (e *Engine) mutate(sessionID string, fn func(st store.Store, s *models.Session) error) error {
	if err := e.locks.acquire(sessionID, e.cfg.LockTimeout); err != nil {
		return err
	}
	defer e.locks.release(sessionID)
	return e.st.Atomic(func(st store.Store) error {
		s, err := st.SessionByID(sessionID)
		if err != nil {
			return err
		}
		return fn(st, s)
	})
}

func requireOpen(s *models.Session) error {
	if s.Status != models.SessionOpen {
		return ErrSessionClosed
	}
	return nil
}

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
