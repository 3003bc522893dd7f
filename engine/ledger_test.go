package engine

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"cashcage/chips"
	"cashcage/models"
)

func TestBuyInCash(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	breakdown := chips.MustNew(map[chips.Denomination]int64{chips.D500: 20})
	tx, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(10000),
		Mode:       models.PayCash,
		Chips:      breakdown,
		RefID:      "buy-1",
	})
	if err != nil {
		t.Fatalf("BuyIn: %v", err)
	}
	if tx.Type != models.TxBuyIn {
		t.Fatalf("unexpected type %q", tx.Type)
	}

	p := mustProjection(t, e, sessionID)
	if !p.SecondaryBalance.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("secondary balance = %s, want 10000", p.SecondaryBalance)
	}
	if !p.CashDeposits.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("cash deposits = %s, want 10000", p.CashDeposits)
	}
	if p.WithPlayers != breakdown {
		t.Fatalf("with-players = %v, want %v", p.WithPlayers, breakdown)
	}
	if got := p.InHand.CountOf(chips.D500); got != 20 {
		t.Fatalf("in-hand 500s = %d, want 20", got)
	}
	assertConservation(t, e, sessionID)
}

func TestBuyInOnline(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	_, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(5000),
		Mode:       models.PayOnline,
	})
	if err != nil {
		t.Fatalf("BuyIn: %v", err)
	}

	p := mustProjection(t, e, sessionID)
	if !p.OnlineDeposits.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("online deposits = %s, want 5000", p.OnlineDeposits)
	}
	// Online money never touches the cash drawer.
	if !p.SecondaryBalance.IsZero() || !p.CashDeposits.IsZero() {
		t.Fatalf("online buy-in leaked into cash: secondary %s, deposits %s", p.SecondaryBalance, p.CashDeposits)
	}
	assertConservation(t, e, sessionID)
}

func TestBuyInIdempotentReplay(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	in := BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(1000),
		Mode:       models.PayCash,
		RefID:      "ref-42",
	}
	first, err := e.BuyIn(sessionID, in)
	if err != nil {
		t.Fatalf("BuyIn: %v", err)
	}
	second, err := e.BuyIn(sessionID, in)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if first.TransactionID != second.TransactionID {
		t.Fatalf("replay produced a new entry: %s vs %s", first.TransactionID, second.TransactionID)
	}

	txs, err := e.Transactions(sessionID)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(txs))
	}
}

func TestBuyInInsufficientChips(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	// The drawer holds one 10000 chip; a default decomposition of 30000
	// needs three.
	_, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(30000),
		Mode:       models.PayCash,
	})
	if !errors.Is(err, ErrInsufficientChips) {
		t.Fatalf("expected ErrInsufficientChips, got %v", err)
	}
}

func TestBuyInRejectsSubCentAmount(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	for _, amount := range []string{"150", "99.50", "1050"} {
		amt, _ := decimal.NewFromString(amount)
		_, err := e.BuyIn(sessionID, BuyInInput{
			PlayerCode: "p1",
			Amount:     amt,
			Mode:       models.PayCash,
		})
		if !errors.Is(err, ErrSubCentDenomination) {
			t.Fatalf("amount %s: expected ErrSubCentDenomination, got %v", amount, err)
		}
	}
}

func TestCashPayout(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	buyIn := chips.MustNew(map[chips.Denomination]int64{chips.D500: 20})
	if _, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(10000),
		Mode:       models.PayCash,
		Chips:      buyIn,
	}); err != nil {
		t.Fatalf("BuyIn: %v", err)
	}

	returned := chips.MustNew(map[chips.Denomination]int64{chips.D500: 10})
	if _, err := e.CashPayout(sessionID, "p1", decimal.NewFromInt(5000), returned, "pay-1", "cabc"); err != nil {
		t.Fatalf("CashPayout: %v", err)
	}

	p := mustProjection(t, e, sessionID)
	if !p.SecondaryBalance.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("secondary balance = %s, want 5000", p.SecondaryBalance)
	}
	if !p.Withdrawals.Equal(decimal.NewFromInt(5000)) {
		t.Fatalf("withdrawals = %s, want 5000", p.Withdrawals)
	}
	if got := p.WithPlayers.CountOf(chips.D500); got != 10 {
		t.Fatalf("with-players 500s = %d, want 10", got)
	}
	assertConservation(t, e, sessionID)

	// Paying out more chips than players hold is rejected.
	over := chips.MustNew(map[chips.Denomination]int64{chips.D500: 11})
	if _, err := e.CashPayout(sessionID, "p1", decimal.NewFromInt(5500), over, "pay-2", "cabc"); !errors.Is(err, ErrOverReturn) {
		t.Fatalf("expected ErrOverReturn, got %v", err)
	}
}

func TestChipReturnsHaveNoCashLeg(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	buyIn := chips.MustNew(map[chips.Denomination]int64{chips.D500: 20})
	if _, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(10000),
		Mode:       models.PayCash,
		Chips:      buyIn,
	}); err != nil {
		t.Fatalf("BuyIn: %v", err)
	}

	deposit := chips.MustNew(map[chips.Denomination]int64{chips.D500: 4})
	if _, err := e.DepositChips(sessionID, "p1", deposit, "safekeeping", "dep-1", "cabc"); err != nil {
		t.Fatalf("DepositChips: %v", err)
	}
	ret := chips.MustNew(map[chips.Denomination]int64{chips.D500: 6})
	if _, err := e.ReturnChips(sessionID, "p1", ret, "", "ret-1", "cabc"); err != nil {
		t.Fatalf("ReturnChips: %v", err)
	}

	p := mustProjection(t, e, sessionID)
	if got := p.WithPlayers.CountOf(chips.D500); got != 10 {
		t.Fatalf("with-players 500s = %d, want 10", got)
	}
	// Cash figures unchanged since the buy-in.
	if !p.SecondaryBalance.Equal(decimal.NewFromInt(10000)) || !p.Withdrawals.IsZero() {
		t.Fatalf("chip return moved cash: secondary %s, withdrawals %s", p.SecondaryBalance, p.Withdrawals)
	}
	assertConservation(t, e, sessionID)

	over := chips.MustNew(map[chips.Denomination]int64{chips.D500: 11})
	if _, err := e.ReturnChips(sessionID, "p1", over, "", "ret-2", "cabc"); !errors.Is(err, ErrOverReturn) {
		t.Fatalf("expected ErrOverReturn, got %v", err)
	}
}

func TestExpense(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	if _, err := e.Expense(sessionID, decimal.NewFromInt(1500), "", "exp-0", "cabc"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing note, got %v", err)
	}

	if _, err := e.Expense(sessionID, decimal.NewFromInt(1500), "chip runner lunch", "exp-1", "cabc"); err != nil {
		t.Fatalf("Expense: %v", err)
	}

	p := mustProjection(t, e, sessionID)
	if !p.PrimaryBalance.Equal(decimal.NewFromInt(48500)) {
		t.Fatalf("primary balance = %s, want 48500", p.PrimaryBalance)
	}
	if !p.Expenses.Equal(decimal.NewFromInt(1500)) || !p.Withdrawals.Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("expenses %s / withdrawals %s, want 1500 each", p.Expenses, p.Withdrawals)
	}
}

func TestAddFloat(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	add := chips.MustNew(map[chips.Denomination]int64{chips.D10000: 1})
	if _, err := e.AddFloat(sessionID, decimal.NewFromInt(10000), add, "midday top-up", "float-1", "cabc"); err != nil {
		t.Fatalf("AddFloat: %v", err)
	}

	p := mustProjection(t, e, sessionID)
	if !p.PrimaryBalance.Equal(decimal.NewFromInt(60000)) {
		t.Fatalf("primary balance = %s, want 60000", p.PrimaryBalance)
	}
	if !p.FloatAdded().Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("float added = %s, want 10000", p.FloatAdded())
	}
	if got := p.InHand.CountOf(chips.D10000); got != 2 {
		t.Fatalf("in-hand 10000s = %d, want 2", got)
	}
	assertConservation(t, e, sessionID)

	// Breakdown must match the amount.
	bad := chips.MustNew(map[chips.Denomination]int64{chips.D100: 1})
	if _, err := e.AddFloat(sessionID, decimal.NewFromInt(10000), bad, "", "float-2", "cabc"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAddFloatIdempotentReplay(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	add := chips.MustNew(map[chips.Denomination]int64{chips.D10000: 1})
	first, err := e.AddFloat(sessionID, decimal.NewFromInt(10000), add, "top-up", "float-42", "cabc")
	if err != nil {
		t.Fatalf("AddFloat: %v", err)
	}
	second, err := e.AddFloat(sessionID, decimal.NewFromInt(10000), add, "top-up", "float-42", "cabc")
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if first.TransactionID != second.TransactionID {
		t.Fatalf("replay produced a new entry: %s vs %s", first.TransactionID, second.TransactionID)
	}

	p := mustProjection(t, e, sessionID)
	if !p.FloatAdded().Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("float added = %s, want 10000", p.FloatAdded())
	}
	txs, err := e.Transactions(sessionID)
	if err != nil {
		t.Fatalf("Transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("ledger has %d entries, want 1", len(txs))
	}
}

func TestAdjustChips(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	if err := e.AdjustChips(sessionID, ChipDeltas{chips.D100: 5}, "", "cabc"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for missing reason, got %v", err)
	}

	deltas := ChipDeltas{chips.D100: 5, chips.D500: -2}
	if err := e.AdjustChips(sessionID, deltas, "recount after shift change", "cabc"); err != nil {
		t.Fatalf("AdjustChips: %v", err)
	}

	p := mustProjection(t, e, sessionID)
	if got := p.InHand.CountOf(chips.D100); got != 105 {
		t.Fatalf("in-hand 100s = %d, want 105", got)
	}
	if got := p.InHand.CountOf(chips.D500); got != 38 {
		t.Fatalf("in-hand 500s = %d, want 38", got)
	}
	assertConservation(t, e, sessionID)

	// Corrections never push a count negative.
	if err := e.AdjustChips(sessionID, ChipDeltas{chips.D10000: -5}, "bogus", "cabc"); !errors.Is(err, ErrNegativeInventory) {
		t.Fatalf("expected ErrNegativeInventory, got %v", err)
	}

	history, err := e.Adjustments(sessionID)
	if err != nil {
		t.Fatalf("Adjustments: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("adjustment history has %d rows, want 1", len(history))
	}
}

func TestAdjustedChipsUsableByLaterBuyIn(t *testing.T) {
	e := newTestEngine(t)
	s, err := e.OpenSession("cadj", "2026-08-28", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("OpenSession: %v", err)
	}
	opening := chips.MustNew(map[chips.Denomination]int64{chips.D100: 10})
	if err := e.SetOpeningChips(s.SessionID, opening); err != nil {
		t.Fatalf("SetOpeningChips: %v", err)
	}

	// A correction brings in ten more 100s, then a buy-in issues all
	// twenty. The projection must replay the correction before the buy-in,
	// the way they were recorded.
	if err := e.AdjustChips(s.SessionID, ChipDeltas{chips.D100: 10}, "rack found in vault", "cadj"); err != nil {
		t.Fatalf("AdjustChips: %v", err)
	}
	issue := chips.MustNew(map[chips.Denomination]int64{chips.D100: 20})
	if _, err := e.BuyIn(s.SessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(2000),
		Mode:       models.PayCash,
		Chips:      issue,
		RefID:      "buy-1",
	}); err != nil {
		t.Fatalf("BuyIn: %v", err)
	}

	p := mustProjection(t, e, s.SessionID)
	if !p.InHand.IsZero() {
		t.Fatalf("in-hand = %v, want empty", p.InHand)
	}
	if p.WithPlayers != issue {
		t.Fatalf("with-players = %v, want %v", p.WithPlayers, issue)
	}
	assertConservation(t, e, s.SessionID)
}

func TestReverseBuyIn(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	tx, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(10000),
		Mode:       models.PayCash,
		RefID:      "buy-1",
	})
	if err != nil {
		t.Fatalf("BuyIn: %v", err)
	}

	rev, err := e.Reverse(sessionID, tx.TransactionID, "wrong player")
	if err != nil {
		t.Fatalf("Reverse: %v", err)
	}
	if rev.Type != models.TxReversal || rev.ReversedType != models.TxBuyIn {
		t.Fatalf("unexpected reversal entry %+v", rev)
	}

	// The projection reads as if the buy-in never happened.
	p := mustProjection(t, e, sessionID)
	if p.InHand != openingSet() || !p.WithPlayers.IsZero() {
		t.Fatalf("pools not restored: in-hand %v, with-players %v", p.InHand, p.WithPlayers)
	}
	if !p.SecondaryBalance.IsZero() || !p.CashDeposits.IsZero() {
		t.Fatalf("cash not restored: secondary %s, deposits %s", p.SecondaryBalance, p.CashDeposits)
	}
	assertConservation(t, e, sessionID)

	// At most once.
	if _, err := e.Reverse(sessionID, tx.TransactionID, "again"); !errors.Is(err, ErrAlreadyReversed) {
		t.Fatalf("expected ErrAlreadyReversed, got %v", err)
	}
	// A reversal entry itself cannot be reversed.
	if _, err := e.Reverse(sessionID, rev.TransactionID, "undo the undo"); !errors.Is(err, ErrNotReversible) {
		t.Fatalf("expected ErrNotReversible, got %v", err)
	}
}

func TestReverseBuyInAfterPartialPayout(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	buyIn := chips.MustNew(map[chips.Denomination]int64{chips.D500: 20})
	tx, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(10000),
		Mode:       models.PayCash,
		Chips:      buyIn,
	})
	if err != nil {
		t.Fatalf("BuyIn: %v", err)
	}
	returned := chips.MustNew(map[chips.Denomination]int64{chips.D500: 10})
	if _, err := e.CashPayout(sessionID, "p1", decimal.NewFromInt(5000), returned, "pay-1", "cabc"); err != nil {
		t.Fatalf("CashPayout: %v", err)
	}

	// Half the chips already came back, so undoing the full issue would
	// drive with-players negative.
	if _, err := e.Reverse(sessionID, tx.TransactionID, "late dispute"); !errors.Is(err, ErrOverReturn) {
		t.Fatalf("expected ErrOverReturn, got %v", err)
	}
}

func TestReversePayout(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)

	buyIn := chips.MustNew(map[chips.Denomination]int64{chips.D500: 20})
	if _, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(10000),
		Mode:       models.PayCash,
		Chips:      buyIn,
	}); err != nil {
		t.Fatalf("BuyIn: %v", err)
	}
	returned := chips.MustNew(map[chips.Denomination]int64{chips.D500: 10})
	pay, err := e.CashPayout(sessionID, "p1", decimal.NewFromInt(5000), returned, "pay-1", "cabc")
	if err != nil {
		t.Fatalf("CashPayout: %v", err)
	}

	if _, err := e.Reverse(sessionID, pay.TransactionID, "counted twice"); err != nil {
		t.Fatalf("Reverse: %v", err)
	}

	p := mustProjection(t, e, sessionID)
	if !p.SecondaryBalance.Equal(decimal.NewFromInt(10000)) || !p.Withdrawals.IsZero() {
		t.Fatalf("payout not undone: secondary %s, withdrawals %s", p.SecondaryBalance, p.Withdrawals)
	}
	if got := p.WithPlayers.CountOf(chips.D500); got != 20 {
		t.Fatalf("with-players 500s = %d, want 20", got)
	}
	assertConservation(t, e, sessionID)
}
