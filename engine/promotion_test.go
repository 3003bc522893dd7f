package engine

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"cashcage/models"
)

func createPromo(t *testing.T, e *Engine, code string, bonus, minDeposit int64, playerLimit int64) *models.Promotion {
	t.Helper()
	p := &models.Promotion{
		PromoCode:   code,
		Name:        "welcome bonus",
		BonusAmount: decimal.NewFromInt(bonus),
		MinDeposit:  decimal.NewFromInt(minDeposit),
		PlayerLimit: playerLimit,
	}
	if err := e.CreatePromotion(p); err != nil {
		t.Fatalf("CreatePromotion: %v", err)
	}
	return p
}

func TestCreatePromotionValidation(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		name  string
		promo models.Promotion
	}{
		{"no code", models.Promotion{BonusAmount: decimal.NewFromInt(500)}},
		{"zero bonus", models.Promotion{PromoCode: "x", BonusAmount: decimal.Zero}},
		{"unpayable bonus", models.Promotion{PromoCode: "x", BonusAmount: decimal.NewFromInt(250)}},
		{"negative min deposit", models.Promotion{PromoCode: "x", BonusAmount: decimal.NewFromInt(500), MinDeposit: decimal.NewFromInt(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.promo
			if err := e.CreatePromotion(&p); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestCheckEligibility(t *testing.T) {
	e := newTestEngine(t)
	createPromo(t, e, "WELCOME", 500, 1000, 0)

	elig, err := e.CheckEligibility("WELCOME", "p1", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("CheckEligibility: %v", err)
	}
	if !elig.Eligible {
		t.Fatalf("expected eligible, got reason %q", elig.Reason)
	}

	// Below the minimum deposit.
	elig, err = e.CheckEligibility("WELCOME", "p1", decimal.NewFromInt(900))
	if err != nil {
		t.Fatalf("CheckEligibility: %v", err)
	}
	if elig.Eligible {
		t.Fatal("expected ineligible below minimum deposit")
	}
}

func TestBuyInClaimsBonus(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)
	createPromo(t, e, "WELCOME", 500, 1000, 0)

	tx, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(1000),
		Mode:       models.PayCash,
		PromoCode:  "WELCOME",
		ApplyBonus: true,
		RefID:      "buy-1",
	})
	if err != nil {
		t.Fatalf("BuyIn: %v", err)
	}
	if tx == nil {
		t.Fatal("no transaction returned")
	}

	p := mustProjection(t, e, sessionID)
	// Bonus chips ride on the same entry: 1000 in chips plus the 500 bonus.
	if !p.WithPlayers.Value().Equal(decimal.NewFromInt(1500)) {
		t.Fatalf("with-players value = %s, want 1500", p.WithPlayers.Value())
	}
	// The wallet only sees the deposit.
	if !p.SecondaryBalance.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("secondary balance = %s, want 1000", p.SecondaryBalance)
	}
	assertConservation(t, e, sessionID)

	// One claim per player per promotion.
	_, err = e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(1000),
		Mode:       models.PayCash,
		PromoCode:  "WELCOME",
		ApplyBonus: true,
		RefID:      "buy-2",
	})
	if !errors.Is(err, ErrPromotionIneligible) && !errors.Is(err, ErrBonusAlreadyClaimed) {
		t.Fatalf("expected a second-claim rejection, got %v", err)
	}
}

func TestPromotionPlayerLimit(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)
	createPromo(t, e, "LIMITED", 500, 1000, 1)

	if _, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(1000),
		Mode:       models.PayCash,
		PromoCode:  "LIMITED",
		ApplyBonus: true,
		RefID:      "buy-1",
	}); err != nil {
		t.Fatalf("BuyIn: %v", err)
	}

	_, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p2",
		Amount:     decimal.NewFromInt(1000),
		Mode:       models.PayCash,
		PromoCode:  "LIMITED",
		ApplyBonus: true,
		RefID:      "buy-2",
	})
	if !errors.Is(err, ErrPromotionIneligible) && !errors.Is(err, ErrPromotionExhausted) {
		t.Fatalf("expected an exhaustion rejection, got %v", err)
	}
}

func TestPromotionConcurrentClaims(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)
	createPromo(t, e, "RACE", 500, 1000, 1)

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.BuyIn(sessionID, BuyInInput{
				PlayerCode: fmt.Sprintf("p%d", i),
				Amount:     decimal.NewFromInt(1000),
				Mode:       models.PayCash,
				PromoCode:  "RACE",
				ApplyBonus: true,
				RefID:      fmt.Sprintf("race-%d", i),
			})
		}(i)
	}
	wg.Wait()

	won := 0
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrPromotionIneligible), errors.Is(err, ErrPromotionExhausted):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if won != 1 {
		t.Fatalf("%d claims succeeded, want exactly 1", won)
	}
	assertConservation(t, e, sessionID)
}

func TestReversingBuyInReleasesClaim(t *testing.T) {
	e := newTestEngine(t)
	sessionID := fundedSession(t, e)
	createPromo(t, e, "WELCOME", 500, 1000, 0)

	tx, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(1000),
		Mode:       models.PayCash,
		PromoCode:  "WELCOME",
		ApplyBonus: true,
		RefID:      "buy-1",
	})
	if err != nil {
		t.Fatalf("BuyIn: %v", err)
	}
	if _, err := e.Reverse(sessionID, tx.TransactionID, "keyed wrong amount"); err != nil {
		t.Fatalf("Reverse: %v", err)
	}

	// The claim was released with the reversal, so the player can claim again.
	if _, err := e.BuyIn(sessionID, BuyInInput{
		PlayerCode: "p1",
		Amount:     decimal.NewFromInt(1000),
		Mode:       models.PayCash,
		PromoCode:  "WELCOME",
		ApplyBonus: true,
		RefID:      "buy-2",
	}); err != nil {
		t.Fatalf("re-claim after reversal: %v", err)
	}
	assertConservation(t, e, sessionID)
}
