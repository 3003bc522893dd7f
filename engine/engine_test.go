package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"cashcage/chips"
	"cashcage/models"
	"cashcage/store/memstore"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return New(memstore.New(), Config{
		AutoApproveLimit: decimal.NewFromInt(10000),
		LockTimeout:      500 * time.Millisecond,
	}, nil)
}

// openingSet is a ₹50,000 drawer used by most scenarios.
func openingSet() chips.Set {
	return chips.MustNew(map[chips.Denomination]int64{
		chips.D100:   100,
		chips.D500:   40,
		chips.D5000:  2,
		chips.D10000: 1,
	})
}

func fundedSession(t *testing.T, e *Engine) string {
	t.Helper()
	s, err := e.OpenSession("cabc", "2026-08-28", decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if err := e.SetOpeningChips(s.SessionID, openingSet()); err != nil {
		t.Fatalf("SetOpeningChips: %v", err)
	}
	return s.SessionID
}

func mustProjection(t *testing.T, e *Engine, sessionID string) *Projection {
	t.Helper()
	p, err := e.Projection(sessionID)
	if err != nil {
		t.Fatalf("Projection: %v", err)
	}
	return p
}

// assertConservation checks that every chip introduced into the session is
// still accounted for across the three pools.
func assertConservation(t *testing.T, e *Engine, sessionID string) {
	t.Helper()
	p := mustProjection(t, e, sessionID)
	total := p.InHand.Add(p.WithPlayers).Add(p.HouseProfit)
	if total != p.Introduced {
		t.Fatalf("conservation broken: in-hand %v + with-players %v + house %v != introduced %v",
			p.InHand, p.WithPlayers, p.HouseProfit, p.Introduced)
	}
}

func TestOpenSession(t *testing.T) {
	e := newTestEngine(t)

	s, err := e.OpenSession("cabc", "2026-08-28", decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	if s.SessionID == "" {
		t.Fatal("expected a session id")
	}

	// One session per cashier per date.
	if _, err := e.OpenSession("cabc", "2026-08-28", decimal.NewFromInt(1000)); !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected ErrDuplicateReference, got %v", err)
	}
	// A different date is fine.
	if _, err := e.OpenSession("cabc", "2026-08-29", decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("second date: %v", err)
	}
}

func TestOpenSessionValidation(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name    string
		cashier string
		date    string
		float   decimal.Decimal
	}{
		{"empty cashier", "", "2026-08-28", decimal.NewFromInt(1000)},
		{"bad date", "cabc", "28-08-2026", decimal.NewFromInt(1000)},
		{"zero float", "cabc", "2026-08-28", decimal.Zero},
		{"negative float", "cabc", "2026-08-28", decimal.NewFromInt(-500)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.OpenSession(tt.cashier, tt.date, tt.float); !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestSetOpeningChips(t *testing.T) {
	e := newTestEngine(t)
	s, err := e.OpenSession("cabc", "2026-08-28", decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	// ₹49,900 against a ₹50,000 float is rejected.
	short := chips.MustNew(map[chips.Denomination]int64{
		chips.D100:   99,
		chips.D500:   40,
		chips.D5000:  2,
		chips.D10000: 1,
	})
	if err := e.SetOpeningChips(s.SessionID, short); !errors.Is(err, ErrInventoryMismatch) {
		t.Fatalf("expected ErrInventoryMismatch, got %v", err)
	}

	if err := e.SetOpeningChips(s.SessionID, openingSet()); err != nil {
		t.Fatalf("SetOpeningChips: %v", err)
	}
	// Exactly once.
	if err := e.SetOpeningChips(s.SessionID, openingSet()); !errors.Is(err, ErrInventoryAlreadySet) {
		t.Fatalf("expected ErrInventoryAlreadySet, got %v", err)
	}

	p := mustProjection(t, e, s.SessionID)
	if p.InHand != openingSet() || p.Introduced != openingSet() {
		t.Fatalf("unexpected pools after opening: %+v", p)
	}
}

func TestLedgerRequiresOpeningInventory(t *testing.T) {
	e := newTestEngine(t)
	s, err := e.OpenSession("cabc", "2026-08-28", decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	_, err = e.BuyIn(s.SessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(1000),
		Mode:       models.PayCash,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation before inventory is set, got %v", err)
	}
}

func TestSessionLockTimeout(t *testing.T) {
	e := newTestEngine(t)
	e.cfg.LockTimeout = 50 * time.Millisecond
	sessionID := fundedSession(t, e)

	if err := e.locks.acquire(sessionID, time.Second); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer e.locks.release(sessionID)

	_, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(1000),
		Mode:       models.PayCash,
	})
	if !errors.Is(err, ErrSessionBusy) {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}
}

func TestAppendAuditNote(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	if _, _, err := e.CloseSession(sessionID, decimal.NewFromInt(50000), decimal.Zero, ""); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	if err := e.AppendAuditNote(sessionID, "first note"); err != nil {
		t.Fatalf("AppendAuditNote: %v", err)
	}
	if err := e.AppendAuditNote(sessionID, "second note"); err != nil {
		t.Fatalf("AppendAuditNote: %v", err)
	}
	s, err := e.Session(sessionID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if s.AuditNote != "first note\nsecond note" {
		t.Fatalf("unexpected audit note %q", s.AuditNote)
	}

	if err := e.AppendAuditNote(sessionID, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for empty note, got %v", err)
	}
}
