package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"cashcage/models"
	"cashcage/store"
)

// Tally is the end-of-day comparison of expected versus counted totals. A
// negative difference is a shortage, positive an overage.
type Tally struct {
	ExpectedCash   decimal.Decimal `json:"expected_cash"`
	OnlineDeposits decimal.Decimal `json:"online_deposits"`
	ActualCash     decimal.Decimal `json:"actual_cash"`
	ActualOnline   decimal.Decimal `json:"actual_online"`
	Difference     decimal.Decimal `json:"difference"`
}

func tallyOf(p *Projection, actualCash, actualOnline decimal.Decimal) Tally {
	expected := p.ExpectedClosingCash()
	return Tally{
		ExpectedCash:   expected,
		OnlineDeposits: p.OnlineDeposits,
		ActualCash:     actualCash,
		ActualOnline:   actualOnline,
		Difference:     actualCash.Add(actualOnline).Sub(expected.Add(p.OnlineDeposits)),
	}
}

// PreviewTally computes the tally without closing, for the cashier's count
// screen.
func (e *Engine) PreviewTally(sessionID string, actualCash, actualOnline decimal.Decimal) (*Tally, error) {
	p, err := e.Projection(sessionID)
	if err != nil {
		return nil, err
	}
	t := tallyOf(p, actualCash, actualOnline)
	return &t, nil
}

// CloseSession reconciles and closes. The session may close with a nonzero
// difference; the difference and note are persisted with the closed session
// permanently. Open → Closed is terminal.
func (e *Engine) CloseSession(sessionID string, actualCash, actualOnline decimal.Decimal, note string) (*models.Session, *Tally, error) {
	if actualCash.IsNegative() || actualOnline.IsNegative() {
		return nil, nil, validationf("counted totals cannot be negative")
	}

	var (
		session *models.Session
		tally   Tally
	)
	err := e.mutate(sessionID, func(st store.Store, s *models.Session) error {
		if err := requireOpen(s); err != nil {
			return err
		}
		// Without the opening inventory the expected cash figure has no
		// opening float in it and the tally is meaningless.
		if !s.InventorySet {
			return validationf("opening inventory not set")
		}
		p, err := e.projectionOf(st, s)
		if err != nil {
			return err
		}
		tally = tallyOf(p, actualCash, actualOnline)

		now := time.Now()
		s.Status = models.SessionClosed
		s.ClosedAt = &now
		s.ExpectedCash = tally.ExpectedCash
		s.OnlineDeposits = tally.OnlineDeposits
		s.ActualCash = actualCash
		s.ActualOnline = actualOnline
		s.TallyDifference = tally.Difference
		s.ClosingNote = note
		session = s
		return st.SaveSession(s)
	})
	if err != nil {
		return nil, nil, err
	}
	e.notify(sessionID, "session.closed")
	return session, &tally, nil
}
