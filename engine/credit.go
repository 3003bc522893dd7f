package engine

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"cashcage/chips"
	"cashcage/models"
	"cashcage/store"
)

// CreditStatus is the derived credit view of a session.
type CreditStatus struct {
	Limit    decimal.Decimal
	Used     decimal.Decimal
	Accounts []models.CreditAccount
}

// SetCreditLimit sets or replaces the session's credit ceiling. Admin only;
// the engine does not allow issuing credit in a session without a limit row.
func (e *Engine) SetCreditLimit(sessionID string, limit decimal.Decimal, setBy string) error {
	if limit.IsNegative() {
		return validationf("credit limit cannot be negative")
	}
	err := e.mutate(sessionID, func(st store.Store, s *models.Session) error {
		if err := requireOpen(s); err != nil {
			return err
		}
		return st.SaveCreditLimit(&models.CreditLimit{
			SessionID: s.SessionID,
			Limit:     limit,
			SetBy:     setBy,
		})
	})
	if err != nil {
		return err
	}
	e.notify(sessionID, "credit.limit_set")
	return nil
}

// CreditStatus returns the limit, derived usage, and per-player accounts.
func (e *Engine) CreditStatus(sessionID string) (*CreditStatus, error) {
	p, err := e.Projection(sessionID)
	if err != nil {
		return nil, err
	}
	accounts, err := e.st.CreditAccountsBySession(sessionID)
	if err != nil {
		return nil, err
	}
	out := &CreditStatus{Used: p.CreditUsed, Accounts: accounts}
	if limit, err := e.st.CreditLimit(sessionID); err == nil {
		out.Limit = limit.Limit
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return out, nil
}

// IssueCreditInput describes a credit issuance request.
type IssueCreditInput struct {
	PlayerCode  string
	Amount      decimal.Decimal
	Chips       chips.Set
	RefID       string
	RequestedBy string
}

// IssueCredit runs the issuance workflow. Within the auto-approve threshold
// and the session limit, the chips move and the ledger entry appends
// immediately (AutoApproved). Above the threshold but within the limit, a
// PendingApproval request is recorded with no effects. Beyond the limit the
// call is rejected with CreditLimitExceeded — the only way past the limit is
// an administrator approving a pending request with an explicit waiver.
func (e *Engine) IssueCredit(sessionID string, in IssueCreditInput) (*models.CreditRequest, *models.Transaction, error) {
	if in.PlayerCode == "" {
		return nil, nil, validationf("player code is required")
	}
	if !in.Amount.IsPositive() {
		return nil, nil, validationf("credit amount must be positive")
	}

	var (
		request *models.CreditRequest
		tx      *models.Transaction
	)
	err := e.mutate(sessionID, func(st store.Store, s *models.Session) error {
		if existing, err := st.TransactionByRef(sessionID, in.RefID); err == nil {
			tx = existing
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

		limit := decimal.Zero
		if row, err := st.CreditLimit(s.SessionID); err == nil {
			limit = row.Limit
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		p, err := e.projectionOf(st, s)
		if err != nil {
			return err
		}
		if p.CreditUsed.Add(in.Amount).GreaterThan(limit) {
			return ErrCreditLimitExceeded
		}

		request = &models.CreditRequest{
			SessionID:     s.SessionID,
			PlayerCode:    in.PlayerCode,
			Amount:        in.Amount,
			ChipBreakdown: SetToJSON(issue),
			Status:        models.CreditRequested,
			RequestedBy:   in.RequestedBy,
		}

		if in.Amount.GreaterThan(e.cfg.AutoApproveLimit) {
			request.Status = models.CreditPendingApproval
			return st.CreateCreditRequest(request)
		}

		request.Status = models.CreditAutoApproved
		tx, err = executeIssuance(st, s, p, request, issue, in.RefID)
		if err != nil {
			return err
		}
		return st.CreateCreditRequest(request)
	})
	if err != nil {
		return nil, nil, err
	}
	if tx != nil {
		e.notify(sessionID, "credit.issued")
	} else {
		e.notify(sessionID, "credit.pending")
	}
	return request, tx, nil
}

// executeIssuance appends the credit_issued entry and moves the account. The
// caller has already validated the limit (or holds a waiver).
func executeIssuance(st store.Store, s *models.Session, p *Projection, r *models.CreditRequest, issue chips.Set, refID string) (*models.Transaction, error) {
	if !p.InHand.Covers(issue) {
		return nil, ErrInsufficientChips
	}

	t := &models.Transaction{
		SessionID:     s.SessionID,
		Type:          models.TxCreditIssued,
		Amount:        r.Amount,
		ChipBreakdown: SetToJSON(issue),
		PlayerCode:    r.PlayerCode,
		RefID:         refID,
		CreatedBy:     r.RequestedBy,
	}
	if err := st.AppendTransaction(t); err != nil {
		return nil, err
	}

	account, err := st.CreditAccount(s.SessionID, r.PlayerCode)
	if errors.Is(err, store.ErrNotFound) {
		account = &models.CreditAccount{
			SessionID:     s.SessionID,
			PlayerCode:    r.PlayerCode,
			CreditIssued:  decimal.Zero,
			CreditSettled: decimal.Zero,
		}
	} else if err != nil {
		return nil, err
	}
	account.CreditIssued = account.CreditIssued.Add(r.Amount)
	prior, err := setFromJSON(account.ChipBreakdown)
	if err != nil {
		return nil, err
	}
	account.ChipBreakdown = SetToJSON(prior.Add(issue))
	if err := st.SaveCreditAccount(account); err != nil {
		return nil, err
	}

	r.TransactionID = t.TransactionID
	return t, nil
}

// DecideCreditRequest resolves a PendingApproval request. Approval re-runs
// the full issuance validation under the session lock; the waiver flag is the
// admin override for the credit limit and nothing else.
func (e *Engine) DecideCreditRequest(requestID string, approve bool, decidedBy string, waiver bool) (*models.CreditRequest, *models.Transaction, error) {
	ref, err := e.st.CreditRequestByID(requestID)
	if err != nil {
		return nil, nil, err
	}

	var (
		request *models.CreditRequest
		tx      *models.Transaction
	)
	err = e.mutate(ref.SessionID, func(st store.Store, s *models.Session) error {
		r, err := st.CreditRequestByID(requestID)
		if err != nil {
			return err
		}
		if r.Status != models.CreditPendingApproval {
			return ErrRequestDecided
		}
		now := time.Now()
		r.DecidedBy = decidedBy
		r.DecidedAt = &now

		if !approve {
			r.Status = models.CreditRejected
			request = r
			return st.SaveCreditRequest(r)
		}

		if err := requireOpen(s); err != nil {
			return err
		}
		issue, err := setFromJSON(r.ChipBreakdown)
		if err != nil {
			return err
		}
		p, err := e.projectionOf(st, s)
		if err != nil {
			return err
		}
		if !waiver {
			limit := decimal.Zero
			if row, err := st.CreditLimit(s.SessionID); err == nil {
				limit = row.Limit
			} else if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if p.CreditUsed.Add(r.Amount).GreaterThan(limit) {
				return ErrCreditLimitExceeded
			}
		}
		r.Waiver = waiver
		if tx, err = executeIssuance(st, s, p, r, issue, ""); err != nil {
			return err
		}
		r.Status = models.CreditApproved
		request = r
		return st.SaveCreditRequest(r)
	})
	if err != nil {
		return nil, nil, err
	}
	if tx != nil {
		e.notify(ref.SessionID, "credit.approved")
	} else {
		e.notify(ref.SessionID, "credit.rejected")
	}
	return request, tx, nil
}

// PendingCreditRequests lists requests waiting on the approval authority.
func (e *Engine) PendingCreditRequests(sessionID string) ([]models.CreditRequest, error) {
	return e.st.PendingCreditRequests(sessionID)
}

// SettleCreditInput describes a settlement of outstanding credit, paid in
// cash, online, or by returning chips.
type SettleCreditInput struct {
	PlayerCode string
	Amount     decimal.Decimal
	Mode       string // cash, online, or chips
	Chips      chips.Set
	RefID      string
	CreatedBy  string
}

// SettleCredit reduces the player's outstanding credit. Chips returned beyond
// the amount owed accrue to the house-profit pool.
func (e *Engine) SettleCredit(sessionID string, in SettleCreditInput) (*models.Transaction, error) {
	if in.PlayerCode == "" {
		return nil, validationf("player code is required")
	}
	if !in.Amount.IsPositive() {
		return nil, validationf("settlement amount must be positive")
	}
	switch in.Mode {
	case models.PayChips:
		if in.Chips.IsZero() {
			return nil, validationf("chip breakdown required for chip settlement")
		}
		if in.Chips.Value().LessThan(in.Amount) {
			return nil, validationf("returned chip value %s is below settlement amount %s", in.Chips.Value(), in.Amount)
		}
	case models.PayCash, models.PayOnline:
		if !in.Chips.IsZero() {
			return nil, validationf("chip breakdown not allowed for %s settlement", in.Mode)
		}
	default:
		return nil, validationf("payment mode must be cash, online, or chips")
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

		account, err := st.CreditAccount(s.SessionID, in.PlayerCode)
		if err != nil {
			return err
		}
		if in.Amount.GreaterThan(account.Outstanding()) {
			return ErrOverSettlement
		}

		out = &models.Transaction{
			SessionID:     s.SessionID,
			Type:          models.TxSettleCredit,
			Amount:        in.Amount,
			PaymentMode:   in.Mode,
			ChipBreakdown: SetToJSON(in.Chips),
			PlayerCode:    in.PlayerCode,
			RefID:         in.RefID,
			CreatedBy:     in.CreatedBy,
		}

		if in.Mode == models.PayChips {
			// The excess must itself be decomposable; this rejects chip
			// settlements of amounts that are not multiples of 100.
			if _, err := chips.Decompose(in.Chips.Value().Sub(in.Amount)); err != nil {
				return err
			}
			p, err := e.projectionOf(st, s)
			if err != nil {
				return err
			}
			if !p.WithPlayers.Covers(in.Chips) {
				return ErrOverReturn
			}
			// Folding the candidate entry proves the excess can be carved
			// out of the post-return drawer. A drawer that never stocked
			// those denominations rejects the settlement here instead of
			// committing an entry no projection could replay.
			if err := p.apply(out); err != nil {
				if errors.Is(err, chips.ErrNegativeInventory) {
					return ErrInsufficientChips
				}
				return err
			}
		}

		if err := st.AppendTransaction(out); err != nil {
			return err
		}
		account.CreditSettled = account.CreditSettled.Add(in.Amount)
		return st.SaveCreditAccount(account)
	})
	if err != nil {
		return nil, err
	}
	e.notify(sessionID, "credit.settled")
	return out, nil
}
