package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Credit request states. Transitions:
// Requested -> AutoApproved | PendingApproval; PendingApproval -> Approved | Rejected.
const (
	CreditRequested       = "Requested"
	CreditAutoApproved    = "AutoApproved"
	CreditPendingApproval = "PendingApproval"
	CreditApproved        = "Approved"
	CreditRejected        = "Rejected"
)

// CreditAccount tracks one player's outstanding credit inside a session.
// Created on first issuance, zeroed by full settlement, never deleted.
type CreditAccount struct {
	gorm.Model

	SessionID     string          `gorm:"size:36;index:idx_session_player,unique" json:"session_id"`
	PlayerCode    string          `gorm:"size:32;index:idx_session_player,unique" json:"player_code"`
	CreditIssued  decimal.Decimal `gorm:"type:numeric(14,2)" json:"credit_issued"`
	CreditSettled decimal.Decimal `gorm:"type:numeric(14,2)" json:"credit_settled"`
	ChipBreakdown datatypes.JSON  `json:"chip_breakdown,omitempty"`
}

// Outstanding is issued minus settled.
func (a *CreditAccount) Outstanding() decimal.Decimal {
	return a.CreditIssued.Sub(a.CreditSettled)
}

// CreditLimit caps the credit a cashier session may issue in total.
type CreditLimit struct {
	gorm.Model

	SessionID string          `gorm:"size:36;uniqueIndex" json:"session_id"`
	Limit     decimal.Decimal `gorm:"type:numeric(14,2)" json:"limit"`
	SetBy     string          `gorm:"size:32" json:"set_by"`
}

// CreditRequest is the approval-workflow record for a credit issuance. The
// ledger entry is appended only once the request reaches AutoApproved or
// Approved.
type CreditRequest struct {
	gorm.Model

	RequestID     string          `gorm:"size:36;uniqueIndex;not null" json:"request_id"`
	SessionID     string          `gorm:"size:36;index" json:"session_id"`
	PlayerCode    string          `gorm:"size:32;index" json:"player_code"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	ChipBreakdown datatypes.JSON  `json:"chip_breakdown,omitempty"`
	Status        string          `gorm:"size:24;index" json:"status"`

	// Waiver marks an admin approval that bypasses the session credit limit.
	Waiver    bool       `gorm:"default:false" json:"waiver"`
	DecidedBy string     `gorm:"size:32" json:"decided_by,omitempty"`
	DecidedAt *time.Time `json:"decided_at,omitempty"`

	// TransactionID links to the credit_issued ledger entry once executed.
	TransactionID string `gorm:"size:36;index" json:"transaction_id,omitempty"`
	RequestedBy   string `gorm:"size:32" json:"requested_by"`
}

func (r *CreditRequest) BeforeCreate(tx *gorm.DB) (err error) {
	if r.RequestID == "" {
		r.RequestID = strings.ToLower(uuid.New().String())
	}
	return nil
}
