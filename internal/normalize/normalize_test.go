package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"($12.50)", "-12.50"},
		{"$1,234.00", "1234.00"},
		{"-15.99", "-15.99"},
		{"  2500.00  ", "2500.00"},
		{"(-7)", "-7.00"},
		{"$ 42", "42.00"},
		{"-$3.10", "-3.10"},
		{"0", "0.00"},
		{"1.5e2", "150.00"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Amount(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestAmount_Invalid(t *testing.T) {
	for _, raw := range []string{"abc", "", "   ", "N/A", "NaN", "Infinity", "-Infinity", "()", "$", "12abc", "1e400", "-1e400", "(1e400)"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Amount(raw)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"2024-03-05", "2024-03-05"},
		{" 2024-03-05 ", "2024-03-05"},
		{"2024-3-5", "2024-03-05"},
		{"2024/03/05", "2024-03-05"},
		{"03/04/2024", "2024-03-04"},
		{"3/4/24", "2024-03-04"},
		{"Jan 5, 2024", "2024-01-05"},
		{"5 January 2024", "2024-01-05"},
		{"2024-03-05T10:30:00Z", "2024-03-05"},
		{"2024-03-05T23:30:00-05:00", "2024-03-06"},
		{"2024-03-05 08:15:00", "2024-03-05"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Date(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDate_Invalid(t *testing.T) {
	for _, raw := range []string{"", "  ", "not a date", "2024-13-01", "32/01/2024", "yesterday", "0000-01-01", "0000/12/31", "01/01/0000"} {
		t.Run(raw, func(t *testing.T) {
			_, err := Date(raw)
			assert.ErrorIs(t, err, ErrInvalidDate)
		})
	}
}

func TestText(t *testing.T) {
	assert.Equal(t, "Netflix", Text("  Netflix\t"))
	assert.Empty(t, Text("   "))
}
