package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Transaction types. Every monetary event at the cage is one of these.
const (
	TxBuyIn         = "buy_in"
	TxCashPayout    = "cash_payout"
	TxCreditIssued  = "credit_issued"
	TxSettleCredit  = "settle_credit"
	TxDepositChips  = "deposit_chips"
	TxReturnChips   = "return_chips"
	TxExpense       = "expense"
	TxReversal      = "reversal"
	TxFloatAddition = "float_addition"
)

// Payment modes for transactions that carry a cash leg.
const (
	PayCash   = "cash"
	PayOnline = "online"
	PayChips  = "chips"
	PayNone   = ""
)

// Transaction is an immutable ledger entry. Rows are append-only: a reversal
// appends an inverse entry and flags the original, it never deletes.
type Transaction struct {
	gorm.Model

	TransactionID string          `gorm:"size:36;uniqueIndex;not null" json:"transaction_id"`
	SessionID     string          `gorm:"size:36;index;index:idx_session_ref,unique,where:ref_id <> ''" json:"session_id"`
	Type          string          `gorm:"size:16;index" json:"type"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2)" json:"amount"`
	PaymentMode   string          `gorm:"size:8" json:"payment_mode"`
	ChipBreakdown datatypes.JSON  `json:"chip_breakdown,omitempty"`
	PlayerCode    string          `gorm:"size:32;index" json:"player_code,omitempty"`
	Note          string          `gorm:"size:255" json:"note,omitempty"`

	// RefID is the caller-supplied idempotency reference; replaying the same
	// reference within a session returns the recorded row.
	RefID string `gorm:"size:64;index:idx_session_ref,unique,where:ref_id <> ''" json:"ref_id,omitempty"`

	IsReversed            bool   `gorm:"default:false" json:"is_reversed"`
	ReversalReason        string `gorm:"size:255" json:"reversal_reason,omitempty"`
	OriginalTransactionID string `gorm:"size:36;index" json:"original_transaction_id,omitempty"`
	// ReversedType carries the original entry's type on reversal rows so
	// projections can apply the exact inverse effect.
	ReversedType string `gorm:"size:16" json:"reversed_type,omitempty"`

	CreatedBy string `gorm:"size:32" json:"created_by,omitempty"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.TransactionID == "" {
		t.TransactionID = strings.ToLower(uuid.New().String())
	}
	return nil
}

// ChipAdjustment is a manual inventory correction. Append-only history; the
// reason is mandatory and prior records are never overwritten.
type ChipAdjustment struct {
	gorm.Model

	SessionID  string         `gorm:"size:36;index" json:"session_id"`
	Deltas     datatypes.JSON `json:"deltas"`
	Reason     string         `gorm:"size:255;not null" json:"reason"`
	AdjustedBy string         `gorm:"size:32" json:"adjusted_by"`
	AdjustedAt time.Time      `json:"adjusted_at"`
}
