package engine

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"cashcage/chips"
	"cashcage/models"
)

// runDay drives a session to an expected drawer of ₹65,000: a ₹50,000 float,
// a ₹10,000 top-up, a ₹10,000 cash buy-in, and a ₹5,000 payout.
func runDay(t *testing.T, e *Engine) string {
	t.Helper()
	sessionID := fundedSession(t, e)

	topUp := chips.MustNew(map[chips.Denomination]int64{chips.D10000: 1})
	if _, err := e.AddFloat(sessionID, decimal.NewFromInt(10000), topUp, "", "float-1", "cabc"); err != nil {
		t.Fatalf("AddFloat: %v", err)
	}
	buyIn := chips.MustNew(map[chips.Denomination]int64{chips.D500: 20})
	if _, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(10000),
		Mode:       models.PayCash,
		Chips:      buyIn,
		RefID:      "buy-1",
	}); err != nil {
		t.Fatalf("BuyIn: %v", err)
	}
	returned := chips.MustNew(map[chips.Denomination]int64{chips.D500: 10})
	if _, err := e.CashPayout(sessionID, "p1", decimal.NewFromInt(5000), returned, "pay-1", "cabc"); err != nil {
		t.Fatalf("CashPayout: %v", err)
	}
	return sessionID
}

func TestPreviewTally(t *testing.T) {
	e := newTestEngine(t)
	sessionID := runDay(t, e)

	tally, err := e.PreviewTally(sessionID, decimal.NewFromInt(65000), decimal.Zero)
	if err != nil {
		t.Fatalf("PreviewTally: %v", err)
	}
	if !tally.ExpectedCash.Equal(decimal.NewFromInt(65000)) {
		t.Fatalf("expected cash = %s, want 65000", tally.ExpectedCash)
	}
	if !tally.Difference.IsZero() {
		t.Fatalf("difference = %s, want 0", tally.Difference)
	}

	// Preview does not close anything.
	s, err := e.Session(sessionID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if s.Status != models.SessionOpen {
		t.Fatalf("session status = %q after preview, want open", s.Status)
	}
}

func TestCloseSessionShortage(t *testing.T) {
	e := newTestEngine(t)
	sessionID := runDay(t, e)

	s, tally, err := e.CloseSession(sessionID, decimal.NewFromInt(64500), decimal.Zero, "drawer short at count")
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if !tally.ExpectedCash.Equal(decimal.NewFromInt(65000)) {
		t.Fatalf("expected cash = %s, want 65000", tally.ExpectedCash)
	}
	if !tally.Difference.Equal(decimal.NewFromInt(-500)) {
		t.Fatalf("difference = %s, want -500", tally.Difference)
	}
	if s.Status != models.SessionClosed || s.ClosedAt == nil {
		t.Fatalf("session not closed: %+v", s)
	}
	if !s.TallyDifference.Equal(decimal.NewFromInt(-500)) || s.ClosingNote != "drawer short at count" {
		t.Fatalf("tally not persisted: %+v", s)
	}
}

func TestCloseSessionWithOnline(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	if _, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(5000),
		Mode:       models.PayOnline,
		RefID:      "buy-1",
	}); err != nil {
		t.Fatalf("BuyIn: %v", err)
	}

	// Online deposits reconcile on their own line, not in the drawer.
	_, tally, err := e.CloseSession(sessionID, decimal.NewFromInt(50000), decimal.NewFromInt(5000), "")
	if err != nil {
		t.Fatalf("CloseSession: %v", err)
	}
	if !tally.ExpectedCash.Equal(decimal.NewFromInt(50000)) {
		t.Fatalf("expected cash = %s, want 50000", tally.ExpectedCash)
	}
	if !tally.OnlineDeposits.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("online deposits = %s, want 5000", tally.OnlineDeposits)
	}
	if !tally.Difference.IsZero() {
		t.Fatalf("difference = %s, want 0", tally.Difference)
	}
}

func TestClosedSessionIsFrozen(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	if _, _, err := e.CloseSession(sessionID, decimal.NewFromInt(50000), decimal.Zero, ""); err != nil {
		t.Fatalf("CloseSession: %v", err)
	}

	if _, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(1000),
		Mode:       models.PayCash,
	}); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed for buy-in, got %v", err)
	}
	if err := e.AdjustChips(sessionID, ChipDeltas{chips.D100: 1}, "late", "cabc"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed for adjustment, got %v", err)
	}
	// Open → Closed is terminal.
	if _, _, err := e.CloseSession(sessionID, decimal.NewFromInt(50000), decimal.Zero, ""); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed for second close, got %v", err)
	}
}

func TestCloseSessionValidation(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	if _, _, err := e.CloseSession(sessionID, decimal.NewFromInt(-1), decimal.Zero, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestCloseSessionRequiresOpeningInventory(t *testing.T) {
	e := newTestEngine(t)
	s, err := e.OpenSession("cabc", "2026-08-28", decimal.NewFromInt(50000))
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}

	// Without the opening inventory the expected figure would be zero and
	// the tally a fiction.
	if _, _, err := e.CloseSession(s.SessionID, decimal.NewFromInt(50000), decimal.Zero, ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	got, err := e.Session(s.SessionID)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	if got.Status != models.SessionOpen {
		t.Fatalf("session status = %q, want open", got.Status)
	}
}
