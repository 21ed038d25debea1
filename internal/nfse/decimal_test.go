package nfse

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"63.263,62", "63263.62", true},
		{"632,64", "632.64", true},
		{"0,00", "0", true},
		{"1.000.000,00", "1000000", true},
		{"1234,56", "1234.56", true},
		{"R$ 1.234,56", "1234.56", true},
		{"1234.56", "1234.56", true},
		{"5", "5", true},
		{"", "", false},
		{"R$", "", false},
		{"abc", "", false},
		{"1,2,3", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDecimal(tt.in)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
			}
		})
	}
}

func TestFormatBRLParsesBack(t *testing.T) {
	for _, cents := range []int64{0, 5, 99, 100, 63264, 6326362, 100000000, 123456789} {
		d := decimal.New(cents, -2)

		formatted := FormatBRL(d)
		got, ok := ParseDecimal(formatted)
		require.True(t, ok, formatted)
		assert.True(t, got.Equal(d), "%s parsed as %s", formatted, got)

		// Ungrouped form, as some layouts print it.
		plain := fmt.Sprintf("%d,%02d", cents/100, cents%100)
		got, ok = ParseDecimal(plain)
		require.True(t, ok, plain)
		assert.True(t, got.Equal(d), "%s parsed as %s", plain, got)
	}
}

func TestFormatBRLGrouping(t *testing.T) {
	out := FormatBRL(decimal.RequireFromString("63263.62"))
	assert.Contains(t, out, "63.263,62")
	assert.Contains(t, out, "R$")
}
