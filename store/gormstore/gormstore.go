// Package gormstore backs the Store interface with Postgres through GORM.
// Atomic maps onto a database transaction; unique indexes on ref ids and
// bonus claims give the engine its at-most-once guarantees under concurrent
// cashiers.
package gormstore

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cashcage/models"
	"cashcage/store"
)

type Gorm struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return store.ErrDuplicate
	default:
		return err
	}
}

func (g *Gorm) Atomic(fn func(store.Store) error) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		return fn(&Gorm{db: tx})
	})
}

func (g *Gorm) CreateSession(s *models.Session) error {
	return translate(g.db.Create(s).Error)
}

func (g *Gorm) SessionByID(sessionID string) (*models.Session, error) {
	var s models.Session
	err := g.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_id = ?", sessionID).First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (g *Gorm) SessionByCashierDate(cashierCode, date string) (*models.Session, error) {
	var s models.Session
	err := g.db.Where("cashier_code = ? AND date = ?", cashierCode, date).First(&s).Error
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (g *Gorm) SaveSession(s *models.Session) error {
	return translate(g.db.Save(s).Error)
}

func (g *Gorm) OpenSessionsBefore(t time.Time) ([]models.Session, error) {
	var out []models.Session
	err := g.db.Where("status = ? AND opened_at < ?", models.SessionOpen, t).Find(&out).Error
	return out, translate(err)
}

func (g *Gorm) AppendTransaction(t *models.Transaction) error {
	return translate(g.db.Create(t).Error)
}

func (g *Gorm) TransactionsBySession(sessionID string) ([]models.Transaction, error) {
	var out []models.Transaction
	err := g.db.Where("session_id = ?", sessionID).Order("id asc").Find(&out).Error
	return out, translate(err)
}

func (g *Gorm) TransactionByID(transactionID string) (*models.Transaction, error) {
	var t models.Transaction
	err := g.db.Where("transaction_id = ?", transactionID).First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (g *Gorm) TransactionByRef(sessionID, refID string) (*models.Transaction, error) {
	if refID == "" {
		return nil, store.ErrNotFound
	}
	var t models.Transaction
	err := g.db.Where("session_id = ? AND ref_id = ?", sessionID, refID).First(&t).Error
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (g *Gorm) MarkReversed(transactionID, reason string) error {
	res := g.db.Model(&models.Transaction{}).
		Where("transaction_id = ? AND is_reversed = false", transactionID).
		Updates(map[string]any{"is_reversed": true, "reversal_reason": reason})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (g *Gorm) AppendAdjustment(a *models.ChipAdjustment) error {
	if a.AdjustedAt.IsZero() {
		a.AdjustedAt = time.Now()
	}
	return translate(g.db.Create(a).Error)
}

func (g *Gorm) AdjustmentsBySession(sessionID string) ([]models.ChipAdjustment, error) {
	var out []models.ChipAdjustment
	err := g.db.Where("session_id = ?", sessionID).Order("id asc").Find(&out).Error
	return out, translate(err)
}

func (g *Gorm) CreditAccount(sessionID, playerCode string) (*models.CreditAccount, error) {
	var a models.CreditAccount
	err := g.db.Where("session_id = ? AND player_code = ?", sessionID, playerCode).First(&a).Error
	if err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (g *Gorm) CreditAccountsBySession(sessionID string) ([]models.CreditAccount, error) {
	var out []models.CreditAccount
	err := g.db.Where("session_id = ?", sessionID).Order("id asc").Find(&out).Error
	return out, translate(err)
}

func (g *Gorm) SaveCreditAccount(a *models.CreditAccount) error {
	return translate(g.db.Save(a).Error)
}

func (g *Gorm) CreditLimit(sessionID string) (*models.CreditLimit, error) {
	var l models.CreditLimit
	err := g.db.Where("session_id = ?", sessionID).First(&l).Error
	if err != nil {
		return nil, translate(err)
	}
	return &l, nil
}

func (g *Gorm) SaveCreditLimit(l *models.CreditLimit) error {
	var existing models.CreditLimit
	err := g.db.Where("session_id = ?", l.SessionID).First(&existing).Error
	if err == nil {
		existing.Limit = l.Limit
		existing.SetBy = l.SetBy
		*l = existing
		return translate(g.db.Save(&existing).Error)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return translate(err)
	}
	return translate(g.db.Create(l).Error)
}

func (g *Gorm) CreateCreditRequest(r *models.CreditRequest) error {
	return translate(g.db.Create(r).Error)
}

func (g *Gorm) CreditRequestByID(requestID string) (*models.CreditRequest, error) {
	var r models.CreditRequest
	err := g.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("request_id = ?", requestID).First(&r).Error
	if err != nil {
		return nil, translate(err)
	}
	return &r, nil
}

func (g *Gorm) SaveCreditRequest(r *models.CreditRequest) error {
	return translate(g.db.Save(r).Error)
}

func (g *Gorm) PendingCreditRequests(sessionID string) ([]models.CreditRequest, error) {
	q := g.db.Where("status = ?", models.CreditPendingApproval)
	if sessionID != "" {
		q = q.Where("session_id = ?", sessionID)
	}
	var out []models.CreditRequest
	err := q.Order("id asc").Find(&out).Error
	return out, translate(err)
}

func (g *Gorm) PendingCreditRequestsBefore(t time.Time) ([]models.CreditRequest, error) {
	var out []models.CreditRequest
	err := g.db.Where("status = ? AND created_at < ?", models.CreditPendingApproval, t).
		Find(&out).Error
	return out, translate(err)
}

func (g *Gorm) CreatePromotion(p *models.Promotion) error {
	return translate(g.db.Create(p).Error)
}

func (g *Gorm) PromotionByCode(code string) (*models.Promotion, error) {
	var p models.Promotion
	err := g.db.Where("promo_code = ?", code).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (g *Gorm) ActivePromotions() ([]models.Promotion, error) {
	var out []models.Promotion
	err := g.db.Where("is_active = true").Order("id asc").Find(&out).Error
	return out, translate(err)
}

// ClaimBonus inserts the claim row and bumps the usage counter with a
// conditional update, all in one transaction. The unique (promotion, player)
// index rejects a second claim; the guarded update rejects claiming past the
// player limit even when two buy-ins race for the last slot.
func (g *Gorm) ClaimBonus(claim *models.BonusClaim) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(claim).Error; err != nil {
			return translate(err)
		}
		res := tx.Model(&models.Promotion{}).
			Where("id = ? AND (player_limit = 0 OR current_usage < player_limit)", claim.PromotionID).
			Update("current_usage", gorm.Expr("current_usage + 1"))
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrExhausted
		}
		return nil
	})
}

func (g *Gorm) HasClaim(promotionID uint, playerCode string) (bool, error) {
	var n int64
	err := g.db.Model(&models.BonusClaim{}).
		Where("promotion_id = ? AND player_code = ?", promotionID, playerCode).
		Count(&n).Error
	return n > 0, translate(err)
}

func (g *Gorm) ClaimByTransaction(transactionID string) (*models.BonusClaim, error) {
	var c models.BonusClaim
	err := g.db.Where("transaction_id = ?", transactionID).First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (g *Gorm) RemoveClaim(transactionID string) error {
	return g.db.Transaction(func(tx *gorm.DB) error {
		var c models.BonusClaim
		if err := tx.Where("transaction_id = ?", transactionID).First(&c).Error; err != nil {
			return translate(err)
		}
		if err := tx.Delete(&c).Error; err != nil {
			return translate(err)
		}
		return translate(tx.Model(&models.Promotion{}).
			Where("id = ? AND current_usage > 0", c.PromotionID).
			Update("current_usage", gorm.Expr("current_usage - 1")).Error)
	})
}

func (g *Gorm) CreateCashier(c *models.Cashier) error {
	return translate(g.db.Create(c).Error)
}

func (g *Gorm) CashierByCode(code string) (*models.Cashier, error) {
	var c models.Cashier
	err := g.db.Where("cashier_code = ? AND is_active = true", code).First(&c).Error
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}
