package models

import "github.com/shopspring/decimal"

// Transaction represents a normalized financial transaction as stored
type Transaction struct {
	ID          int64           `json:"id"`
	Date        string          `json:"date"` // Format: YYYY-MM-DD
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
}

// IsSpending reports whether the transaction is a debit
func (t Transaction) IsSpending() bool {
	return t.Amount.IsNegative()
}

// TransactionFilter selects a page of transactions
type TransactionFilter struct {
	Search string // lower-cased substring matched against description or category
	Limit  int
	Offset int
}
