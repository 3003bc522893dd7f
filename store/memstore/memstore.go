// Package memstore is an in-memory Store used by the engine tests and local
// development. Atomic runs against a deep copy of the state and swaps it in on
// success, so a failed operation leaves nothing behind.
package memstore

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cashcage/models"
	"cashcage/store"
)

type state struct {
	nextID       uint
	sessions     []models.Session
	transactions []models.Transaction
	adjustments  []models.ChipAdjustment
	accounts     []models.CreditAccount
	limits       []models.CreditLimit
	requests     []models.CreditRequest
	promotions   []models.Promotion
	claims       []models.BonusClaim
	cashiers     []models.Cashier
}

func (s *state) clone() *state {
	c := *s
	c.sessions = append([]models.Session(nil), s.sessions...)
	c.transactions = append([]models.Transaction(nil), s.transactions...)
	c.adjustments = append([]models.ChipAdjustment(nil), s.adjustments...)
	c.accounts = append([]models.CreditAccount(nil), s.accounts...)
	c.limits = append([]models.CreditLimit(nil), s.limits...)
	c.requests = append([]models.CreditRequest(nil), s.requests...)
	c.promotions = append([]models.Promotion(nil), s.promotions...)
	c.claims = append([]models.BonusClaim(nil), s.claims...)
	c.cashiers = append([]models.Cashier(nil), s.cashiers...)
	return &c
}

func (s *state) id() uint {
	s.nextID++
	return s.nextID
}

// Mem is the locking front of the store. The zero value is not usable; call New.
type Mem struct {
	mu sync.RWMutex
	st *state
}

func New() *Mem {
	return &Mem{st: &state{}}
}

// view operates on a state without locking; Mem wraps every call in the
// appropriate lock, Atomic hands a view of the working copy to fn.
type view struct {
	st *state
}

func (m *Mem) Atomic(fn func(store.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.st.clone()
	if err := fn(view{work}); err != nil {
		return err
	}
	m.st = work
	return nil
}

func (m *Mem) read(fn func(view) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(view{m.st})
}

func (m *Mem) write(fn func(view) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(view{m.st})
}

// view implementation

func (v view) Atomic(fn func(store.Store) error) error {
	// Already inside an atomic scope.
	return fn(v)
}

func (v view) CreateSession(s *models.Session) error {
	for i := range v.st.sessions {
		if v.st.sessions[i].CashierCode == s.CashierCode && v.st.sessions[i].Date == s.Date {
			return store.ErrDuplicate
		}
	}
	if s.SessionID == "" {
		s.SessionID = strings.ToLower(uuid.New().String())
	}
	s.ID = v.st.id()
	s.CreatedAt = time.Now()
	v.st.sessions = append(v.st.sessions, *s)
	return nil
}

func (v view) SessionByID(sessionID string) (*models.Session, error) {
	for i := range v.st.sessions {
		if v.st.sessions[i].SessionID == sessionID {
			s := v.st.sessions[i]
			return &s, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v view) SessionByCashierDate(cashierCode, date string) (*models.Session, error) {
	for i := range v.st.sessions {
		if v.st.sessions[i].CashierCode == cashierCode && v.st.sessions[i].Date == date {
			s := v.st.sessions[i]
			return &s, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v view) SaveSession(s *models.Session) error {
	for i := range v.st.sessions {
		if v.st.sessions[i].SessionID == s.SessionID {
			v.st.sessions[i] = *s
			return nil
		}
	}
	return store.ErrNotFound
}

func (v view) OpenSessionsBefore(t time.Time) ([]models.Session, error) {
	var out []models.Session
	for i := range v.st.sessions {
		if v.st.sessions[i].Status == models.SessionOpen && v.st.sessions[i].OpenedAt.Before(t) {
			out = append(out, v.st.sessions[i])
		}
	}
	return out, nil
}

func (v view) AppendTransaction(t *models.Transaction) error {
	for i := range v.st.transactions {
		row := &v.st.transactions[i]
		if row.TransactionID == t.TransactionID {
			return store.ErrDuplicate
		}
		if t.RefID != "" && row.SessionID == t.SessionID && row.RefID == t.RefID {
			return store.ErrDuplicate
		}
	}
	if t.TransactionID == "" {
		t.TransactionID = strings.ToLower(uuid.New().String())
	}
	t.ID = v.st.id()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	v.st.transactions = append(v.st.transactions, *t)
	return nil
}

func (v view) TransactionsBySession(sessionID string) ([]models.Transaction, error) {
	var out []models.Transaction
	for i := range v.st.transactions {
		if v.st.transactions[i].SessionID == sessionID {
			out = append(out, v.st.transactions[i])
		}
	}
	return out, nil
}

func (v view) TransactionByID(transactionID string) (*models.Transaction, error) {
	for i := range v.st.transactions {
		if v.st.transactions[i].TransactionID == transactionID {
			t := v.st.transactions[i]
			return &t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v view) TransactionByRef(sessionID, refID string) (*models.Transaction, error) {
	if refID == "" {
		return nil, store.ErrNotFound
	}
	for i := range v.st.transactions {
		if v.st.transactions[i].SessionID == sessionID && v.st.transactions[i].RefID == refID {
			t := v.st.transactions[i]
			return &t, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v view) MarkReversed(transactionID, reason string) error {
	for i := range v.st.transactions {
		if v.st.transactions[i].TransactionID == transactionID {
			v.st.transactions[i].IsReversed = true
			v.st.transactions[i].ReversalReason = reason
			return nil
		}
	}
	return store.ErrNotFound
}

func (v view) AppendAdjustment(a *models.ChipAdjustment) error {
	a.ID = v.st.id()
	if a.AdjustedAt.IsZero() {
		a.AdjustedAt = time.Now()
	}
	a.CreatedAt = a.AdjustedAt
	v.st.adjustments = append(v.st.adjustments, *a)
	return nil
}

func (v view) AdjustmentsBySession(sessionID string) ([]models.ChipAdjustment, error) {
	var out []models.ChipAdjustment
	for i := range v.st.adjustments {
		if v.st.adjustments[i].SessionID == sessionID {
			out = append(out, v.st.adjustments[i])
		}
	}
	return out, nil
}

func (v view) CreditAccount(sessionID, playerCode string) (*models.CreditAccount, error) {
	for i := range v.st.accounts {
		if v.st.accounts[i].SessionID == sessionID && v.st.accounts[i].PlayerCode == playerCode {
			a := v.st.accounts[i]
			return &a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v view) CreditAccountsBySession(sessionID string) ([]models.CreditAccount, error) {
	var out []models.CreditAccount
	for i := range v.st.accounts {
		if v.st.accounts[i].SessionID == sessionID {
			out = append(out, v.st.accounts[i])
		}
	}
	return out, nil
}

func (v view) SaveCreditAccount(a *models.CreditAccount) error {
	for i := range v.st.accounts {
		if v.st.accounts[i].SessionID == a.SessionID && v.st.accounts[i].PlayerCode == a.PlayerCode {
			v.st.accounts[i] = *a
			return nil
		}
	}
	a.ID = v.st.id()
	a.CreatedAt = time.Now()
	v.st.accounts = append(v.st.accounts, *a)
	return nil
}

func (v view) CreditLimit(sessionID string) (*models.CreditLimit, error) {
	for i := range v.st.limits {
		if v.st.limits[i].SessionID == sessionID {
			l := v.st.limits[i]
			return &l, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v view) SaveCreditLimit(l *models.CreditLimit) error {
	for i := range v.st.limits {
		if v.st.limits[i].SessionID == l.SessionID {
			v.st.limits[i] = *l
			return nil
		}
	}
	l.ID = v.st.id()
	l.CreatedAt = time.Now()
	v.st.limits = append(v.st.limits, *l)
	return nil
}

func (v view) CreateCreditRequest(r *models.CreditRequest) error {
	if r.RequestID == "" {
		r.RequestID = strings.ToLower(uuid.New().String())
	}
	r.ID = v.st.id()
	r.CreatedAt = time.Now()
	v.st.requests = append(v.st.requests, *r)
	return nil
}

func (v view) CreditRequestByID(requestID string) (*models.CreditRequest, error) {
	for i := range v.st.requests {
		if v.st.requests[i].RequestID == requestID {
			r := v.st.requests[i]
			return &r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v view) SaveCreditRequest(r *models.CreditRequest) error {
	for i := range v.st.requests {
		if v.st.requests[i].RequestID == r.RequestID {
			v.st.requests[i] = *r
			return nil
		}
	}
	return store.ErrNotFound
}

func (v view) PendingCreditRequests(sessionID string) ([]models.CreditRequest, error) {
	var out []models.CreditRequest
	for i := range v.st.requests {
		r := &v.st.requests[i]
		if r.Status == models.CreditPendingApproval && (sessionID == "" || r.SessionID == sessionID) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (v view) PendingCreditRequestsBefore(t time.Time) ([]models.CreditRequest, error) {
	var out []models.CreditRequest
	for i := range v.st.requests {
		r := &v.st.requests[i]
		if r.Status == models.CreditPendingApproval && r.CreatedAt.Before(t) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (v view) CreatePromotion(p *models.Promotion) error {
	for i := range v.st.promotions {
		if v.st.promotions[i].PromoCode == p.PromoCode {
			return store.ErrDuplicate
		}
	}
	p.ID = v.st.id()
	p.CreatedAt = time.Now()
	v.st.promotions = append(v.st.promotions, *p)
	return nil
}

func (v view) PromotionByCode(code string) (*models.Promotion, error) {
	for i := range v.st.promotions {
		if v.st.promotions[i].PromoCode == code {
			p := v.st.promotions[i]
			return &p, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v view) ActivePromotions() ([]models.Promotion, error) {
	var out []models.Promotion
	for i := range v.st.promotions {
		if v.st.promotions[i].IsActive {
			out = append(out, v.st.promotions[i])
		}
	}
	return out, nil
}

func (v view) ClaimBonus(claim *models.BonusClaim) error {
	var promo *models.Promotion
	for i := range v.st.promotions {
		if v.st.promotions[i].ID == claim.PromotionID {
			promo = &v.st.promotions[i]
			break
		}
	}
	if promo == nil {
		return store.ErrNotFound
	}
	for i := range v.st.claims {
		if v.st.claims[i].PromotionID == claim.PromotionID && v.st.claims[i].PlayerCode == claim.PlayerCode {
			return store.ErrDuplicate
		}
	}
	if promo.PlayerLimit > 0 && promo.CurrentUsage >= promo.PlayerLimit {
		return store.ErrExhausted
	}
	promo.CurrentUsage++
	claim.ID = v.st.id()
	claim.CreatedAt = time.Now()
	v.st.claims = append(v.st.claims, *claim)
	return nil
}

func (v view) HasClaim(promotionID uint, playerCode string) (bool, error) {
	for i := range v.st.claims {
		if v.st.claims[i].PromotionID == promotionID && v.st.claims[i].PlayerCode == playerCode {
			return true, nil
		}
	}
	return false, nil
}

func (v view) ClaimByTransaction(transactionID string) (*models.BonusClaim, error) {
	for i := range v.st.claims {
		if v.st.claims[i].TransactionID == transactionID {
			c := v.st.claims[i]
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (v view) RemoveClaim(transactionID string) error {
	for i := range v.st.claims {
		if v.st.claims[i].TransactionID == transactionID {
			promoID := v.st.claims[i].PromotionID
			v.st.claims = append(v.st.claims[:i:i], v.st.claims[i+1:]...)
			for j := range v.st.promotions {
				if v.st.promotions[j].ID == promoID && v.st.promotions[j].CurrentUsage > 0 {
					v.st.promotions[j].CurrentUsage--
				}
			}
			return nil
		}
	}
	return store.ErrNotFound
}

func (v view) CreateCashier(c *models.Cashier) error {
	for i := range v.st.cashiers {
		if v.st.cashiers[i].CashierCode == c.CashierCode {
			return store.ErrDuplicate
		}
	}
	c.ID = v.st.id()
	c.CreatedAt = time.Now()
	v.st.cashiers = append(v.st.cashiers, *c)
	return nil
}

func (v view) CashierByCode(code string) (*models.Cashier, error) {
	for i := range v.st.cashiers {
		if v.st.cashiers[i].CashierCode == code {
			c := v.st.cashiers[i]
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

// Mem delegation

func (m *Mem) CreateSession(s *models.Session) error {
	return m.write(func(v view) error { return v.CreateSession(s) })
}

func (m *Mem) SessionByID(id string) (out *models.Session, err error) {
	err = m.read(func(v view) error { out, err = v.SessionByID(id); return err })
	return
}

func (m *Mem) SessionByCashierDate(cashier, date string) (out *models.Session, err error) {
	err = m.read(func(v view) error { out, err = v.SessionByCashierDate(cashier, date); return err })
	return
}

func (m *Mem) SaveSession(s *models.Session) error {
	return m.write(func(v view) error { return v.SaveSession(s) })
}

func (m *Mem) OpenSessionsBefore(t time.Time) (out []models.Session, err error) {
	err = m.read(func(v view) error { out, err = v.OpenSessionsBefore(t); return err })
	return
}

func (m *Mem) AppendTransaction(t *models.Transaction) error {
	return m.write(func(v view) error { return v.AppendTransaction(t) })
}

func (m *Mem) TransactionsBySession(id string) (out []models.Transaction, err error) {
	err = m.read(func(v view) error { out, err = v.TransactionsBySession(id); return err })
	return
}

func (m *Mem) TransactionByID(id string) (out *models.Transaction, err error) {
	err = m.read(func(v view) error { out, err = v.TransactionByID(id); return err })
	return
}

func (m *Mem) TransactionByRef(sessionID, refID string) (out *models.Transaction, err error) {
	err = m.read(func(v view) error { out, err = v.TransactionByRef(sessionID, refID); return err })
	return
}

func (m *Mem) MarkReversed(id, reason string) error {
	return m.write(func(v view) error { return v.MarkReversed(id, reason) })
}

func (m *Mem) AppendAdjustment(a *models.ChipAdjustment) error {
	return m.write(func(v view) error { return v.AppendAdjustment(a) })
}

func (m *Mem) AdjustmentsBySession(id string) (out []models.ChipAdjustment, err error) {
	err = m.read(func(v view) error { out, err = v.AdjustmentsBySession(id); return err })
	return
}

func (m *Mem) CreditAccount(sessionID, playerCode string) (out *models.CreditAccount, err error) {
	err = m.read(func(v view) error { out, err = v.CreditAccount(sessionID, playerCode); return err })
	return
}

func (m *Mem) CreditAccountsBySession(id string) (out []models.CreditAccount, err error) {
	err = m.read(func(v view) error { out, err = v.CreditAccountsBySession(id); return err })
	return
}

func (m *Mem) SaveCreditAccount(a *models.CreditAccount) error {
	return m.write(func(v view) error { return v.SaveCreditAccount(a) })
}

func (m *Mem) CreditLimit(id string) (out *models.CreditLimit, err error) {
	err = m.read(func(v view) error { out, err = v.CreditLimit(id); return err })
	return
}

func (m *Mem) SaveCreditLimit(l *models.CreditLimit) error {
	return m.write(func(v view) error { return v.SaveCreditLimit(l) })
}

func (m *Mem) CreateCreditRequest(r *models.CreditRequest) error {
	return m.write(func(v view) error { return v.CreateCreditRequest(r) })
}

func (m *Mem) CreditRequestByID(id string) (out *models.CreditRequest, err error) {
	err = m.read(func(v view) error { out, err = v.CreditRequestByID(id); return err })
	return
}

func (m *Mem) SaveCreditRequest(r *models.CreditRequest) error {
	return m.write(func(v view) error { return v.SaveCreditRequest(r) })
}

func (m *Mem) PendingCreditRequests(sessionID string) (out []models.CreditRequest, err error) {
	err = m.read(func(v view) error { out, err = v.PendingCreditRequests(sessionID); return err })
	return
}

func (m *Mem) PendingCreditRequestsBefore(t time.Time) (out []models.CreditRequest, err error) {
	err = m.read(func(v view) error { out, err = v.PendingCreditRequestsBefore(t); return err })
	return
}

func (m *Mem) CreatePromotion(p *models.Promotion) error {
	return m.write(func(v view) error { return v.CreatePromotion(p) })
}

func (m *Mem) PromotionByCode(code string) (out *models.Promotion, err error) {
	err = m.read(func(v view) error { out, err = v.PromotionByCode(code); return err })
	return
}

func (m *Mem) ActivePromotions() (out []models.Promotion, err error) {
	err = m.read(func(v view) error { out, err = v.ActivePromotions(); return err })
	return
}

func (m *Mem) ClaimBonus(claim *models.BonusClaim) error {
	return m.write(func(v view) error { return v.ClaimBonus(claim) })
}

func (m *Mem) HasClaim(promotionID uint, playerCode string) (out bool, err error) {
	err = m.read(func(v view) error { out, err = v.HasClaim(promotionID, playerCode); return err })
	return
}

func (m *Mem) ClaimByTransaction(id string) (out *models.BonusClaim, err error) {
	err = m.read(func(v view) error { out, err = v.ClaimByTransaction(id); return err })
	return
}

func (m *Mem) RemoveClaim(id string) error {
	return m.write(func(v view) error { return v.RemoveClaim(id) })
}

func (m *Mem) CreateCashier(c *models.Cashier) error {
	return m.write(func(v view) error { return v.CreateCashier(c) })
}

func (m *Mem) CashierByCode(code string) (out *models.Cashier, err error) {
	err = m.read(func(v view) error { out, err = v.CashierByCode(code); return err })
	return
}
