package engine

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"cashcage/chips"
	"cashcage/models"
	"cashcage/store"
)

// BuyInInput is a player converting cash into chips, optionally claiming a
// deposit promotion in the same action.
type BuyInInput struct {
	PlayerCode string
	Amount     decimal.Decimal
	Mode       string // cash or online
	Chips      chips.Set
	PromoCode  string
	ApplyBonus bool
	RefID      string
	CreatedBy  string
}

// BuyIn appends a buy_in entry. The chip breakdown defaults to the canonical
// decomposition of the amount; a promotion bonus, when claimed, rides on the
// same entry as extra chips. Replaying the same RefID returns the recorded
// entry untouched.
func (e *Engine) BuyIn(sessionID string, in BuyInInput) (*models.Transaction, error) {
	if !in.Amount.IsPositive() {
		return nil, validationf("buy-in amount must be positive")
	}
	if in.Mode != models.PayCash && in.Mode != models.PayOnline {
		return nil, validationf("payment mode must be cash or online")
	}
	if in.ApplyBonus && in.PromoCode == "" {
		return nil, validationf("promo code required to apply a bonus")
	}

	var out *models.Transaction
	err := e.mutate(sessionID, func(st store.Store, s *models.Session) error {
		if existing, err := st.TransactionByRef(sessionID, in.RefID); err == nil {
			out = existing
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

		issue := in.Chips
		if issue.IsZero() {
			var err error
			if issue, err = chips.Decompose(in.Amount); err != nil {
				return err
			}
		} else if !issue.Value().Equal(in.Amount) {
			return validationf("chip breakdown value %s does not match amount %s", issue.Value(), in.Amount)
		}

		var promo *models.Promotion
		var bonusSet chips.Set
		if in.ApplyBonus {
			var err error
			promo, err = st.PromotionByCode(in.PromoCode)
			if err != nil {
				return err
			}
			elig, err := evaluateEligibility(st, promo, in.PlayerCode, in.Amount)
			if err != nil {
				return err
			}
			if !elig.Eligible {
				return fmt.Errorf("%w: %s", ErrPromotionIneligible, elig.Reason)
			}
			if bonusSet, err = chips.Decompose(promo.BonusAmount); err != nil {
				return err
			}
			issue = issue.Add(bonusSet)
		}

		p, err := e.projectionOf(st, s)
		if err != nil {
			return err
		}
		if !p.InHand.Covers(issue) {
			return ErrInsufficientChips
		}

		t := &models.Transaction{
			SessionID:     s.SessionID,
			Type:          models.TxBuyIn,
			Amount:        in.Amount,
			PaymentMode:   in.Mode,
			ChipBreakdown: SetToJSON(issue),
			PlayerCode:    in.PlayerCode,
			RefID:         in.RefID,
			CreatedBy:     in.CreatedBy,
		}
		if err := st.AppendTransaction(t); err != nil {
			return err
		}
		if promo != nil {
			claim := &models.BonusClaim{
				PromotionID:   promo.ID,
				PromoCode:     promo.PromoCode,
				PlayerCode:    in.PlayerCode,
				SessionID:     s.SessionID,
				DepositAmount: in.Amount,
				BonusAmount:   promo.BonusAmount,
				TransactionID: t.TransactionID,
			}
			switch err := st.ClaimBonus(claim); {
			case err == nil:
			case errors.Is(err, store.ErrDuplicate):
				return ErrBonusAlreadyClaimed
			case errors.Is(err, store.ErrExhausted):
				return ErrPromotionExhausted
			default:
				return err
			}
		}
		out = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.notify(sessionID, "ledger.buy_in")
	return out, nil
}

// CashPayout pays cash for chips a player hands back.
func (e *Engine) CashPayout(sessionID, playerCode string, amount decimal.Decimal, set chips.Set, refID, createdBy string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, validationf("payout amount must be positive")
	}

	var out *models.Transaction
	err := e.mutate(sessionID, func(st store.Store, s *models.Session) error {
		if existing, err := st.TransactionByRef(sessionID, refID); err == nil {
			out = existing
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := requireOpen(s); err != nil {
			return err
		}

		returned := set
		if returned.IsZero() {
			var err error
			if returned, err = chips.Decompose(amount); err != nil {
				return err
			}
		} else if !returned.Value().Equal(amount) {
			return validationf("chip breakdown value %s does not match amount %s", returned.Value(), amount)
		}

		p, err := e.projectionOf(st, s)
		if err != nil {
			return err
		}
		if !p.WithPlayers.Covers(returned) {
			return ErrOverReturn
		}

		out = &models.Transaction{
			SessionID:     s.SessionID,
			Type:          models.TxCashPayout,
			Amount:        amount,
			PaymentMode:   models.PayCash,
			ChipBreakdown: SetToJSON(returned),
			PlayerCode:    playerCode,
			RefID:         refID,
			CreatedBy:     createdBy,
		}
		return st.AppendTransaction(out)
	})
	if err != nil {
		return nil, err
	}
	e.notify(sessionID, "ledger.cash_payout")
	return out, nil
}

// returnEntry covers deposit_chips and return_chips: chips come back to the
// cage with no cash leg.
func (e *Engine) returnEntry(txType, sessionID, playerCode string, set chips.Set, note, refID, createdBy string) (*models.Transaction, error) {
	if set.IsZero() {
		return nil, validationf("chip breakdown is required")
	}

	var out *models.Transaction
	err := e.mutate(sessionID, func(st store.Store, s *models.Session) error {
		if existing, err := st.TransactionByRef(sessionID, refID); err == nil {
			out = existing
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := requireOpen(s); err != nil {
			return err
		}
		p, err := e.projectionOf(st, s)
		if err != nil {
			return err
		}
		if !p.WithPlayers.Covers(set) {
			return ErrOverReturn
		}
		out = &models.Transaction{
			SessionID:     s.SessionID,
			Type:          txType,
			Amount:        set.Value(),
			ChipBreakdown: SetToJSON(set),
			PlayerCode:    playerCode,
			Note:          note,
			RefID:         refID,
			CreatedBy:     createdBy,
		}
		return st.AppendTransaction(out)
	})
	if err != nil {
		return nil, err
	}
	e.notify(sessionID, "ledger."+txType)
	return out, nil
}

// DepositChips records a player leaving chips with the cage.
func (e *Engine) DepositChips(sessionID, playerCode string, set chips.Set, note, refID, createdBy string) (*models.Transaction, error) {
	return e.returnEntry(models.TxDepositChips, sessionID, playerCode, set, note, refID, createdBy)
}

// ReturnChips records a plain end-of-play chip return.
func (e *Engine) ReturnChips(sessionID, playerCode string, set chips.Set, note, refID, createdBy string) (*models.Transaction, error) {
	return e.returnEntry(models.TxReturnChips, sessionID, playerCode, set, note, refID, createdBy)
}

// Expense records cage cash spent out of the primary wallet.
func (e *Engine) Expense(sessionID string, amount decimal.Decimal, note, refID, createdBy string) (*models.Transaction, error) {
	if !amount.IsPositive() {
		return nil, validationf("expense amount must be positive")
	}
	if note == "" {
		return nil, validationf("expense note is required")
	}

	var out *models.Transaction
	err := e.mutate(sessionID, func(st store.Store, s *models.Session) error {
		if existing, err := st.TransactionByRef(sessionID, refID); err == nil {
			out = existing
			return nil
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if err := requireOpen(s); err != nil {
			return err
		}
		out = &models.Transaction{
			SessionID:   s.SessionID,
			Type:        models.TxExpense,
			Amount:      amount,
			PaymentMode: models.PayCash,
			Note:        note,
			RefID:       refID,
			CreatedBy:   createdBy,
		}
		return st.AppendTransaction(out)
	})
	if err != nil {
		return nil, err
	}
	e.notify(sessionID, "ledger.expense")
	return out, nil
}

// AdjustChips records a manual inventory correction. The reason is mandatory
// and the history is append-only.
func (e *Engine) AdjustChips(sessionID string, deltas ChipDeltas, reason, adjustedBy string) error {
	if reason == "" {
		return validationf("adjustment reason is required")
	}
	if len(deltas) == 0 {
		return validationf("adjustment deltas are required")
	}
	added, removed, err := deltas.split()
	if err != nil {
		return err
	}

	err = e.mutate(sessionID, func(st store.Store, s *models.Session) error {
		if err := requireOpen(s); err != nil {
			return err
		}
		p, err := e.projectionOf(st, s)
		if err != nil {
			return err
		}
		if _, err := p.InHand.Add(added).Subtract(removed); err != nil {
			return err
		}
		raw, err := deltas.MarshalJSON()
		if err != nil {
			return err
		}
		return st.AppendAdjustment(&models.ChipAdjustment{
			SessionID:  s.SessionID,
			Deltas:     raw,
			Reason:     reason,
			AdjustedBy: adjustedBy,
		})
	})
	if err != nil {
		return err
	}
	e.notify(sessionID, "ledger.adjustment")
	return nil
}

// Adjustments lists the session's manual correction history.
func (e *Engine) Adjustments(sessionID string) ([]models.ChipAdjustment, error) {
	return e.st.AdjustmentsBySession(sessionID)
}

// Reverse appends an inverse entry for a prior transaction and flags the
// original. The inverse is validated against the folded projections first, so
// the conservation invariants hold after reversal exactly as if the original
// had never happened; a reversal that would break them is rejected.
func (e *Engine) Reverse(sessionID, transactionID, reason string) (*models.Transaction, error) {
	if reason == "" {
		return nil, validationf("reversal reason is required")
	}

	var out *models.Transaction
	err := e.mutate(sessionID, func(st store.Store, s *models.Session) error {
		if err := requireOpen(s); err != nil {
			return err
		}
		orig, err := st.TransactionByID(transactionID)
		if err != nil {
			return err
		}
		if orig.SessionID != s.SessionID {
			return validationf("transaction belongs to another session")
		}
		if orig.IsReversed {
			return ErrAlreadyReversed
		}
		if orig.Type == models.TxReversal {
			return ErrNotReversible
		}

		inverse := &models.Transaction{
			SessionID:             s.SessionID,
			Type:                  models.TxReversal,
			ReversedType:          orig.Type,
			Amount:                orig.Amount,
			PaymentMode:           orig.PaymentMode,
			ChipBreakdown:         orig.ChipBreakdown,
			PlayerCode:            orig.PlayerCode,
			Note:                  reason,
			OriginalTransactionID: orig.TransactionID,
			CreatedBy:             orig.CreatedBy,
		}

		p, err := e.projectionOf(st, s)
		if err != nil {
			return err
		}
		if err := p.apply(inverse); err != nil {
			if errors.Is(err, chips.ErrNegativeInventory) {
				switch orig.Type {
				case models.TxBuyIn, models.TxCreditIssued:
					return ErrOverReturn
				default:
					return ErrInsufficientChips
				}
			}
			return err
		}

		switch orig.Type {
		case models.TxCreditIssued:
			account, err := st.CreditAccount(s.SessionID, orig.PlayerCode)
			if err != nil {
				return err
			}
			issued := account.CreditIssued.Sub(orig.Amount)
			if issued.LessThan(account.CreditSettled) {
				return ErrNotReversible
			}
			account.CreditIssued = issued
			if err := st.SaveCreditAccount(account); err != nil {
				return err
			}
		case models.TxSettleCredit:
			account, err := st.CreditAccount(s.SessionID, orig.PlayerCode)
			if err != nil {
				return err
			}
			settled := account.CreditSettled.Sub(orig.Amount)
			if settled.IsNegative() {
				return ErrNotReversible
			}
			account.CreditSettled = settled
			if err := st.SaveCreditAccount(account); err != nil {
				return err
			}
		case models.TxBuyIn:
			if _, err := st.ClaimByTransaction(orig.TransactionID); err == nil {
				if err := st.RemoveClaim(orig.TransactionID); err != nil {
					return err
				}
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}
		}

		if err := st.MarkReversed(orig.TransactionID, reason); err != nil {
			return err
		}
		if err := st.AppendTransaction(inverse); err != nil {
			return err
		}
		out = inverse
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.notify(sessionID, "ledger.reversal")
	return out, nil
}
