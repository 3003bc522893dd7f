package services

import (
	"github.com/shopspring/decimal"

	"cashcage/chips"
	"cashcage/engine"
	"cashcage/models"
)

// PoolView is one chip pool with its per-denomination counts and total value.
type PoolView struct {
	Chips chips.Set       `json:"chips"`
	Value decimal.Decimal `json:"value"`
}

func poolView(s chips.Set) PoolView {
	return PoolView{Chips: s, Value: s.Value()}
}

// SessionSummary is the full derived picture of a session for the cashier
// dashboard: identity, chip pools, wallets, credit exposure, and the expected
// closing figures.
type SessionSummary struct {
	Session *models.Session `json:"session"`

	Opening     PoolView `json:"opening"`
	InHand      PoolView `json:"in_hand"`
	WithPlayers PoolView `json:"with_players"`
	HouseProfit PoolView `json:"house_profit"`
	Introduced  PoolView `json:"introduced"`

	PrimaryBalance   decimal.Decimal `json:"primary_balance"`
	SecondaryBalance decimal.Decimal `json:"secondary_balance"`

	CashDeposits   decimal.Decimal `json:"cash_deposits"`
	OnlineDeposits decimal.Decimal `json:"online_deposits"`
	Withdrawals    decimal.Decimal `json:"withdrawals"`
	Expenses       decimal.Decimal `json:"expenses"`
	FloatAdded     decimal.Decimal `json:"float_added"`

	ExpectedCash decimal.Decimal `json:"expected_cash"`

	CreditLimit       decimal.Decimal        `json:"credit_limit"`
	CreditUsed        decimal.Decimal        `json:"credit_used"`
	CreditOutstanding decimal.Decimal        `json:"credit_outstanding"`
	CreditAccounts    []models.CreditAccount `json:"credit_accounts"`

	TransactionCount int `json:"transaction_count"`
}

// BuildSummary assembles the summary from the engine's projections. Works for
// open and closed sessions alike.
func BuildSummary(eng *engine.Engine, sessionID string) (*SessionSummary, error) {
	s, err := eng.Session(sessionID)
	if err != nil {
		return nil, err
	}
	p, err := eng.Projection(sessionID)
	if err != nil {
		return nil, err
	}
	txs, err := eng.Transactions(sessionID)
	if err != nil {
		return nil, err
	}
	credit, err := eng.CreditStatus(sessionID)
	if err != nil {
		return nil, err
	}

	outstanding := decimal.Zero
	for i := range credit.Accounts {
		outstanding = outstanding.Add(credit.Accounts[i].Outstanding())
	}

	return &SessionSummary{
		Session:           s,
		Opening:           poolView(p.Opening),
		InHand:            poolView(p.InHand),
		WithPlayers:       poolView(p.WithPlayers),
		HouseProfit:       poolView(p.HouseProfit),
		Introduced:        poolView(p.Introduced),
		PrimaryBalance:    p.PrimaryBalance,
		SecondaryBalance:  p.SecondaryBalance,
		CashDeposits:      p.CashDeposits,
		OnlineDeposits:    p.OnlineDeposits,
		Withdrawals:       p.Withdrawals,
		Expenses:          p.Expenses,
		FloatAdded:        p.FloatAdded(),
		ExpectedCash:      p.ExpectedClosingCash(),
		CreditLimit:       credit.Limit,
		CreditUsed:        credit.Used,
		CreditOutstanding: outstanding,
		CreditAccounts:    credit.Accounts,
		TransactionCount:  len(txs),
	}, nil
}
