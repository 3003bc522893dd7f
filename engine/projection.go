package engine

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"cashcage/chips"
	"cashcage/models"
	"cashcage/store"
)

// Projection is the derived view of a session: every field is recomputed by
// folding the transaction log, never stored.
type Projection struct {
	SessionID string

	// Chip pools. Conservation: InHand + WithPlayers + HouseProfit ==
	// Introduced at every point in the session's history.
	Opening     chips.Set
	InHand      chips.Set
	WithPlayers chips.Set
	HouseProfit chips.Set
	Introduced  chips.Set

	// Wallets. Primary is owner capital (opening float + float additions −
	// expenses); Secondary is player-sourced cash (cash received − cash paid
	// out).
	PrimaryBalance   decimal.Decimal
	SecondaryBalance decimal.Decimal

	// Reconciliation inputs.
	CashDeposits   decimal.Decimal // cash buy-ins + cash settlements
	OnlineDeposits decimal.Decimal
	Withdrawals    decimal.Decimal // cash payouts + expenses
	Expenses       decimal.Decimal

	// CreditUsed is the sum of executed credit issuances net of reversals,
	// checked against the session credit limit.
	CreditUsed decimal.Decimal

	// adjustmentValue is the net value of manual corrections, kept apart so
	// FloatAdded stays a pure float figure.
	adjustmentValue decimal.Decimal
}

// ExpectedClosingCash is the cash the drawer should hold at tally time.
func (p *Projection) ExpectedClosingCash() decimal.Decimal {
	return p.Opening.Value().Add(p.FloatAdded()).Add(p.CashDeposits).Sub(p.Withdrawals)
}

// FloatAdded is the value introduced by float additions after open.
func (p *Projection) FloatAdded() decimal.Decimal {
	return p.Introduced.Value().Sub(p.Opening.Value()).Sub(p.adjustmentValue)
}

func setFromJSON(raw datatypes.JSON) (chips.Set, error) {
	if len(raw) == 0 {
		return chips.Set{}, nil
	}
	var s chips.Set
	if err := json.Unmarshal(raw, &s); err != nil {
		return chips.Set{}, err
	}
	return s, nil
}

// SetToJSON serializes a chip set for a ledger row.
func SetToJSON(s chips.Set) datatypes.JSON {
	b, _ := json.Marshal(s)
	return datatypes.JSON(b)
}

// ChipDeltas is a signed per-denomination correction used by manual
// adjustments.
type ChipDeltas map[chips.Denomination]int64

func (d ChipDeltas) MarshalJSON() ([]byte, error) {
	m := make(map[string]int64, len(d))
	for k, v := range d {
		m[strconv.FormatInt(int64(k), 10)] = v
	}
	return json.Marshal(m)
}

func (d *ChipDeltas) UnmarshalJSON(data []byte) error {
	var m map[string]int64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	out := make(ChipDeltas, len(m))
	for k, v := range m {
		face, err := strconv.ParseInt(k, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %q", chips.ErrUnknownDenomination, k)
		}
		out[chips.Denomination(face)] = v
	}
	*d = out
	return nil
}

// split separates signed deltas into an added set and a removed set.
func (d ChipDeltas) split() (added, removed chips.Set, err error) {
	addCounts := map[chips.Denomination]int64{}
	remCounts := map[chips.Denomination]int64{}
	for denom, n := range d {
		if n >= 0 {
			addCounts[denom] = n
		} else {
			remCounts[denom] = -n
		}
	}
	if added, err = chips.New(addCounts); err != nil {
		return
	}
	removed, err = chips.New(remCounts)
	return
}

// Projection computes the derived view for a session against the current log
// snapshot. Reads take no session lock: the store hands back a consistent
// snapshot of fully appended rows.
func (e *Engine) Projection(sessionID string) (*Projection, error) {
	s, err := e.st.SessionByID(sessionID)
	if err != nil {
		return nil, err
	}
	return e.projectionOf(e.st, s)
}

func (e *Engine) projectionOf(st store.Store, s *models.Session) (*Projection, error) {
	txs, err := st.TransactionsBySession(s.SessionID)
	if err != nil {
		return nil, err
	}
	adjustments, err := st.AdjustmentsBySession(s.SessionID)
	if err != nil {
		return nil, err
	}
	return fold(s, txs, adjustments)
}

func fold(s *models.Session, txs []models.Transaction, adjustments []models.ChipAdjustment) (*Projection, error) {
	p := &Projection{
		SessionID:        s.SessionID,
		PrimaryBalance:   s.OpeningFloat,
		SecondaryBalance: decimal.Zero,
		CashDeposits:     decimal.Zero,
		OnlineDeposits:   decimal.Zero,
		Withdrawals:      decimal.Zero,
		Expenses:         decimal.Zero,
		CreditUsed:       decimal.Zero,
	}

	if s.InventorySet {
		opening, err := setFromJSON(s.OpeningChips)
		if err != nil {
			return nil, fmt.Errorf("opening chips: %w", err)
		}
		p.Opening = opening
		p.InHand = opening
		p.Introduced = opening
	}

	// Replay ledger entries and manual adjustments interleaved in the order
	// they were recorded. Mutations validate against the fully folded state
	// at their point in time, so replaying the two streams out of order can
	// go negative on chips an adjustment introduced mid-session. Each slice
	// arrives in insert order; merge on the recorded timestamp, adjustments
	// first on a tie.
	i, j := 0, 0
	for i < len(txs) || j < len(adjustments) {
		takeAdjustment := j < len(adjustments) &&
			(i >= len(txs) || !adjustments[j].CreatedAt.After(txs[i].CreatedAt))
		if takeAdjustment {
			if err := p.applyAdjustment(&adjustments[j]); err != nil {
				return nil, fmt.Errorf("adjustment %d: %w", adjustments[j].ID, err)
			}
			j++
			continue
		}
		if err := p.apply(&txs[i]); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", txs[i].TransactionID, err)
		}
		i++
	}

	return p, nil
}

// applyAdjustment folds one manual inventory correction into the pools.
func (p *Projection) applyAdjustment(a *models.ChipAdjustment) error {
	var deltas ChipDeltas
	if err := json.Unmarshal(a.Deltas, &deltas); err != nil {
		return err
	}
	added, removed, err := deltas.split()
	if err != nil {
		return err
	}
	p.InHand = p.InHand.Add(added)
	p.Introduced = p.Introduced.Add(added)
	if p.InHand, err = p.InHand.Subtract(removed); err != nil {
		return err
	}
	if p.Introduced, err = p.Introduced.Subtract(removed); err != nil {
		return err
	}
	p.adjustmentValue = p.adjustmentValue.Add(added.Value()).Sub(removed.Value())
	return nil
}

// apply folds one ledger entry into the projection. A reversal row applies
// the exact inverse of the entry it references.
func (p *Projection) apply(t *models.Transaction) error {
	typ := t.Type
	inverse := false
	if t.Type == models.TxReversal {
		typ = t.ReversedType
		inverse = true
	}

	breakdown, err := setFromJSON(t.ChipBreakdown)
	if err != nil {
		return err
	}
	amount := t.Amount

	switch typ {
	case models.TxBuyIn:
		if err := p.moveIssue(breakdown, inverse); err != nil {
			return err
		}
		switch t.PaymentMode {
		case models.PayCash:
			p.SecondaryBalance = p.addSigned(p.SecondaryBalance, amount, inverse)
			p.CashDeposits = p.addSigned(p.CashDeposits, amount, inverse)
		case models.PayOnline:
			p.OnlineDeposits = p.addSigned(p.OnlineDeposits, amount, inverse)
		}

	case models.TxCreditIssued:
		if err := p.moveIssue(breakdown, inverse); err != nil {
			return err
		}
		p.CreditUsed = p.addSigned(p.CreditUsed, amount, inverse)

	case models.TxCashPayout:
		if err := p.moveReturn(breakdown, inverse); err != nil {
			return err
		}
		p.SecondaryBalance = p.addSigned(p.SecondaryBalance, amount, !inverse)
		p.Withdrawals = p.addSigned(p.Withdrawals, amount, inverse)

	case models.TxSettleCredit:
		if err := p.moveReturn(breakdown, inverse); err != nil {
			return err
		}
		// Chips returned beyond the amount owed are house profit.
		excess := breakdown.Value().Sub(amount)
		if excess.IsPositive() {
			excessSet, err := chips.Decompose(excess)
			if err != nil {
				return err
			}
			if inverse {
				if p.HouseProfit, err = p.HouseProfit.Subtract(excessSet); err != nil {
					return err
				}
				p.InHand = p.InHand.Add(excessSet)
			} else {
				if p.InHand, err = p.InHand.Subtract(excessSet); err != nil {
					return err
				}
				p.HouseProfit = p.HouseProfit.Add(excessSet)
			}
		}
		switch t.PaymentMode {
		case models.PayCash:
			p.SecondaryBalance = p.addSigned(p.SecondaryBalance, amount, inverse)
			p.CashDeposits = p.addSigned(p.CashDeposits, amount, inverse)
		case models.PayOnline:
			p.OnlineDeposits = p.addSigned(p.OnlineDeposits, amount, inverse)
		}

	case models.TxDepositChips, models.TxReturnChips:
		if err := p.moveReturn(breakdown, inverse); err != nil {
			return err
		}

	case models.TxExpense:
		p.PrimaryBalance = p.addSigned(p.PrimaryBalance, amount, !inverse)
		p.Expenses = p.addSigned(p.Expenses, amount, inverse)
		p.Withdrawals = p.addSigned(p.Withdrawals, amount, inverse)

	case models.TxFloatAddition:
		p.PrimaryBalance = p.addSigned(p.PrimaryBalance, amount, inverse)
		if inverse {
			if p.Introduced, err = p.Introduced.Subtract(breakdown); err != nil {
				return err
			}
			if p.InHand, err = p.InHand.Subtract(breakdown); err != nil {
				return err
			}
		} else {
			p.Introduced = p.Introduced.Add(breakdown)
			p.InHand = p.InHand.Add(breakdown)
		}

	default:
		return fmt.Errorf("unknown transaction type %q", typ)
	}
	return nil
}

func (p *Projection) addSigned(base, amount decimal.Decimal, negate bool) decimal.Decimal {
	if negate {
		return base.Sub(amount)
	}
	return base.Add(amount)
}

// moveIssue moves chips from in-hand to with-players (or back on inverse).
func (p *Projection) moveIssue(b chips.Set, inverse bool) error {
	var err error
	if inverse {
		if p.WithPlayers, err = p.WithPlayers.Subtract(b); err != nil {
			return err
		}
		p.InHand = p.InHand.Add(b)
		return nil
	}
	if p.InHand, err = p.InHand.Subtract(b); err != nil {
		return err
	}
	p.WithPlayers = p.WithPlayers.Add(b)
	return nil
}

// moveReturn moves chips from with-players to in-hand (or back on inverse).
func (p *Projection) moveReturn(b chips.Set, inverse bool) error {
	var err error
	if inverse {
		if p.InHand, err = p.InHand.Subtract(b); err != nil {
			return err
		}
		p.WithPlayers = p.WithPlayers.Add(b)
		return nil
	}
	if p.WithPlayers, err = p.WithPlayers.Subtract(b); err != nil {
		return err
	}
	p.InHand = p.InHand.Add(b)
	return nil
}
