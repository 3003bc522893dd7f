package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Promotion is a deposit bonus. PlayerLimit caps how many distinct players
// may claim it; zero means unlimited.
type Promotion struct {
	gorm.Model

	PromoCode    string          `gorm:"uniqueIndex;size:32" json:"promo_code"`
	Name         string          `gorm:"size:64" json:"name"`
	BonusAmount  decimal.Decimal `gorm:"type:numeric(14,2)" json:"bonus_amount"`
	MinDeposit   decimal.Decimal `gorm:"type:numeric(14,2)" json:"min_deposit"`
	PlayerLimit  int64           `json:"player_limit"`
	CurrentUsage int64           `json:"current_usage"`
	IsActive     bool            `gorm:"default:true" json:"is_active"`
}

// BonusClaim links a promotion to the deposit that claimed it. At most one
// claim per (promotion, player), enforced by the unique index.
type BonusClaim struct {
	gorm.Model

	PromotionID   uint            `gorm:"index:idx_promo_player,unique" json:"promotion_id"`
	PromoCode     string          `gorm:"size:32" json:"promo_code"`
	PlayerCode    string          `gorm:"size:32;index:idx_promo_player,unique" json:"player_code"`
	SessionID     string          `gorm:"size:36;index" json:"session_id"`
	DepositAmount decimal.Decimal `gorm:"type:numeric(14,2)" json:"deposit_amount"`
	BonusAmount   decimal.Decimal `gorm:"type:numeric(14,2)" json:"bonus_amount"`
	TransactionID string          `gorm:"size:36;index" json:"transaction_id"`
}
