package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	SessionOpen   = "Open"
	SessionClosed = "Closed"
)

// Session is one cashier's working day at the cage. Once Closed it never
// reopens; only AuditNote may still be appended to.
type Session struct {
	gorm.Model

	SessionID    string          `gorm:"size:36;uniqueIndex;not null" json:"session_id"`
	CashierCode  string          `gorm:"size:32;index:idx_cashier_date,unique" json:"cashier_code"`
	Date         string          `gorm:"size:10;index:idx_cashier_date,unique" json:"date"`
	OpeningFloat decimal.Decimal `gorm:"type:numeric(14,2)" json:"opening_float"`
	Status       string          `gorm:"size:16;index" json:"status"`
	OpenedAt     time.Time       `json:"opened_at"`
	ClosedAt     *time.Time      `json:"closed_at,omitempty"`

	// Opening chip inventory, set exactly once after open.
	OpeningChips datatypes.JSON `json:"opening_chips,omitempty"`
	InventorySet bool           `gorm:"default:false" json:"inventory_set"`

	// Reconciliation outcome, persisted permanently at close.
	ExpectedCash    decimal.Decimal `gorm:"type:numeric(14,2)" json:"expected_cash"`
	OnlineDeposits  decimal.Decimal `gorm:"type:numeric(14,2)" json:"online_deposits"`
	ActualCash      decimal.Decimal `gorm:"type:numeric(14,2)" json:"actual_cash"`
	ActualOnline    decimal.Decimal `gorm:"type:numeric(14,2)" json:"actual_online"`
	TallyDifference decimal.Decimal `gorm:"type:numeric(14,2)" json:"tally_difference"`
	ClosingNote     string          `gorm:"size:255" json:"closing_note,omitempty"`
	AuditNote       string          `gorm:"size:255" json:"audit_note,omitempty"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) (err error) {
	if s.SessionID == "" {
		s.SessionID = strings.ToLower(uuid.New().String())
	}
	return nil
}
