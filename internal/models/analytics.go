package models

import "github.com/shopspring/decimal"

// Sign selects which side of the ledger a sum covers
type Sign int

const (
	Positive Sign = iota + 1
	Negative
)

// DescriptionTotal is the signed total for one description
type DescriptionTotal struct {
	Description string
	Total       decimal.Decimal
}

// CategoryTotal holds spending (as a positive magnitude) and income for one category
type CategoryTotal struct {
	Category string
	Spending decimal.Decimal
	Income   decimal.Decimal
}

// Spending is a debit record with its amount flipped to a positive magnitude
type Spending struct {
	ID          int64
	Date        string
	Description string
	Category    string
	Amount      decimal.Decimal
}

// DateRange represents the earliest and latest stored dates
type DateRange struct {
	MinDate *string `json:"minDate"`
	MaxDate *string `json:"maxDate"`
}

// Totals represents overall income and spending
type Totals struct {
	Income   float64 `json:"income"`
	Spending float64 `json:"spending"`
	Net      float64 `json:"net"`
}

// Merchant represents one of the largest descriptions by absolute total
type Merchant struct {
	Description string  `json:"description"`
	Total       float64 `json:"total"`
}

// Summary represents the overall view of stored transactions
type Summary struct {
	Count        int64      `json:"count"`
	DateRange    DateRange  `json:"dateRange"`
	Totals       Totals     `json:"totals"`
	TopMerchants []Merchant `json:"topMerchants"`
}

// CategoryBreakdown represents spending and income for one category
type CategoryBreakdown struct {
	Category string  `json:"category"`
	Spending float64 `json:"spending"`
	Income   float64 `json:"income"`
}

// Anomaly represents a spending record that stands out within its category
type Anomaly struct {
	ID          int64   `json:"id"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Spending    float64 `json:"spending"`
	ZScore      float64 `json:"zScore"`
}
