// Package normalize turns raw CSV cells into typed transaction fields.
package normalize

import (
	"errors"
	"math"
	"strings"
	"time"

	"github.com/jinzhu/now"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
)

// DateFormat is the canonical stored date layout
const DateFormat = "2006-01-02"

// dateLayouts is tried in order. Numeric slash and dash dates are month-first.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2006.1.2",
	"1/2/2006",
	"1-2-2006",
	"1/2/06",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"January 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2-Jan-2006",
	"2-Jan-06",
	"Mon, 2 Jan 2006",
	"Mon Jan 2 2006",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
}

var dateParser = &now.Config{
	WeekStartDay: time.Monday,
	TimeLocation: time.UTC,
	TimeFormats:  dateLayouts,
}

var parseReference = time.Date(0, time.January, 1, 0, 0, 0, 0, time.UTC)

var amountReplacer = strings.NewReplacer("$", "", ",", "", "(", "", ")", "")

// Text trims a raw cell. An empty result means the field is absent.
func Text(raw string) string {
	return strings.TrimSpace(raw)
}

// Amount parses a money cell such as "$1,234.00" or "(12.50)".
// A value wholly wrapped in parentheses is negative whatever sign it carries.
func Amount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	negative := len(s) >= 2 && strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")")
	s = strings.TrimSpace(amountReplacer.Replace(s))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if f, _ := v.Float64(); math.IsInf(f, 0) {
		return decimal.Zero, ErrInvalidAmount
	}
	if negative {
		return v.Abs().Neg(), nil
	}
	return v, nil
}

// Date parses a date cell and returns its calendar date as YYYY-MM-DD.
func Date(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", ErrInvalidDate
	}
	// now fills zero fields from the reference time; a zero reference keeps a year of 0 detectable.
	t, err := dateParser.With(parseReference).Parse(s)
	if err != nil {
		return "", ErrInvalidDate
	}
	if t = t.UTC(); t.Year() == 0 {
		return "", ErrInvalidDate
	}
	return t.Format(DateFormat), nil
}
