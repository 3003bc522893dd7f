package engine

import (
	"github.com/shopspring/decimal"

	"cashcage/chips"
	"cashcage/models"
	"cashcage/store"
)

// Eligibility is the outcome of a promotion availability check. It never
// claims anything: a deposit can always be recorded without a bonus even when
// one is available, and claiming is a separate explicit cashier action.
type Eligibility struct {
	Eligible  bool              `json:"eligible"`
	Reason    string            `json:"reason,omitempty"`
	Promotion *models.Promotion `json:"promotion"`
}

// CreatePromotion registers a deposit bonus. The bonus must be payable in
// chips, so it has to be a positive multiple of 100.
func (e *Engine) CreatePromotion(p *models.Promotion) error {
	if p.PromoCode == "" {
		return validationf("promo code is required")
	}
	if !p.BonusAmount.IsPositive() {
		return validationf("bonus amount must be positive")
	}
	if _, err := chips.Decompose(p.BonusAmount); err != nil {
		return err
	}
	if p.MinDeposit.IsNegative() {
		return validationf("minimum deposit cannot be negative")
	}
	if p.PlayerLimit < 0 {
		return validationf("player limit cannot be negative")
	}
	p.IsActive = true
	p.CurrentUsage = 0
	return e.st.CreatePromotion(p)
}

// ActivePromotions lists promotions currently open for claims.
func (e *Engine) ActivePromotions() ([]models.Promotion, error) {
	return e.st.ActivePromotions()
}

// CheckEligibility previews whether a deposit qualifies for a promotion.
// Rules run in order: promotion active, deposit meets the minimum, no prior
// claim by this player, player limit not reached.
func (e *Engine) CheckEligibility(promoCode, playerCode string, depositAmount decimal.Decimal) (*Eligibility, error) {
	promo, err := e.st.PromotionByCode(promoCode)
	if err != nil {
		return nil, err
	}
	return evaluateEligibility(e.st, promo, playerCode, depositAmount)
}

func evaluateEligibility(st store.Store, promo *models.Promotion, playerCode string, depositAmount decimal.Decimal) (*Eligibility, error) {
	out := &Eligibility{Promotion: promo}
	if !promo.IsActive {
		out.Reason = "promotion inactive"
		return out, nil
	}
	if depositAmount.LessThan(promo.MinDeposit) {
		out.Reason = "deposit below minimum " + promo.MinDeposit.String()
		return out, nil
	}
	if playerCode != "" {
		claimed, err := st.HasClaim(promo.ID, playerCode)
		if err != nil {
			return nil, err
		}
		if claimed {
			out.Reason = "already claimed by player"
			return out, nil
		}
	}
	if promo.PlayerLimit > 0 && promo.CurrentUsage >= promo.PlayerLimit {
		out.Reason = "player limit reached"
		return out, nil
	}
	out.Eligible = true
	return out, nil
}
