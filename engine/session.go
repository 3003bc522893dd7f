package engine

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"cashcage/chips"
	"cashcage/models"
	"cashcage/store"
)

// OpenSession starts a cashier's day with an opening float. One session per
// cashier per calendar date.
func (e *Engine) OpenSession(cashierCode, date string, openingFloat decimal.Decimal) (*models.Session, error) {
	if cashierCode == "" {
		return nil, validationf("cashier code is required")
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return nil, validationf("date must be YYYY-MM-DD, got %q", date)
	}
	if !openingFloat.IsPositive() {
		return nil, validationf("opening float must be positive")
	}

	s := &models.Session{
		CashierCode:  cashierCode,
		Date:         date,
		OpeningFloat: openingFloat,
		Status:       models.SessionOpen,
		OpenedAt:     time.Now(),
	}
	err := e.st.Atomic(func(st store.Store) error {
		if _, err := st.SessionByCashierDate(cashierCode, date); err == nil {
			return ErrDuplicateReference
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return st.CreateSession(s)
	})
	if err != nil {
		return nil, err
	}
	e.notify(s.SessionID, "session.opened")
	return s, nil
}

// SetOpeningChips records the opening chip inventory, exactly once, and only
// when its value equals the opening float to the rupee.
func (e *Engine) SetOpeningChips(sessionID string, set chips.Set) error {
	err := e.mutate(sessionID, func(st store.Store, s *models.Session) error {
		if err := requireOpen(s); err != nil {
			return err
		}
		if s.InventorySet {
			return ErrInventoryAlreadySet
		}
		if !set.Value().Equal(s.OpeningFloat) {
			return ErrInventoryMismatch
		}
		s.OpeningChips = SetToJSON(set)
		s.InventorySet = true
		return st.SaveSession(s)
	})
	if err != nil {
		return err
	}
	e.notify(sessionID, "session.opening_chips")
	return nil
}

// AddFloat appends a float_addition entry: more house cash and chips handed
// to the cashier mid-day.
func (e *Engine) AddFloat(sessionID string, amount decimal.Decimal, set chips.Set, notes, refID, addedBy string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, validationf("float amount must be positive")
	}
	if !set.Value().Equal(amount) {
		return nil, validationf("chip breakdown value %s does not match amount %s", set.Value(), amount)
	}

	var t *models.Transaction
	err := e.mutate(sessionID, func(st store.Store, s *models.Session) error {
		if existing, err := st.TransactionByRef(sessionID, refID); err == nil {
			t = existing
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := requireOpen(s); err != nil {
			return err
		}
		if !s.InventorySet {
			return validationf("opening inventory not set")
		}
		t = &models.Transaction{
			SessionID:     s.SessionID,
			Type:          models.TxFloatAddition,
			Amount:        amount,
			PaymentMode:   models.PayCash,
			ChipBreakdown: SetToJSON(set),
			Note:          notes,
			RefID:         refID,
			CreatedBy:     addedBy,
		}
		return st.AppendTransaction(t)
	})
	if err != nil {
		return nil, err
	}
	e.notify(sessionID, "ledger.float_addition")
	return t, nil
}

// AppendAuditNote is the only mutation allowed on a closed session.
func (e *Engine) AppendAuditNote(sessionID, note string) error {
	if note == "" {
		return validationf("audit note is required")
	}
	err := e.mutate(sessionID, func(st store.Store, s *models.Session) error {
		if s.AuditNote == "" {
			s.AuditNote = note
		} else {
			s.AuditNote = s.AuditNote + "\n" + note
		}
		return st.SaveSession(s)
	})
	if err != nil {
		return err
	}
	e.notify(sessionID, "session.audit_note")
	return nil
}

// Session is a plain read of the session row.
func (e *Engine) Session(sessionID string) (*models.Session, error) {
	return e.st.SessionByID(sessionID)
}

// Transactions lists the session's ledger in append order.
func (e *Engine) Transactions(sessionID string) ([]models.Transaction, error) {
	return e.st.TransactionsBySession(sessionID)
}
