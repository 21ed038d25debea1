package nfse

import (
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// CurrencyBRL is the ISO-4217 code of the Brazilian real.
const CurrencyBRL = "BRL"

var (
	reNonNumeric = regexp.MustCompile(`[^\d.,]`)

	// 63.263,62 or 632,64
	reGroupedBR = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})*,\d{2}$`)

	// Grouped decimal token as printed in the retention tables.
	reBRAmount = regexp.MustCompile(`\d{1,3}(?:\.\d{3})*,\d{2}`)
)

// ParseDecimal parses a Brazilian or already-normalized number.
// Everything except digits, '.' and ',' is discarded first, so "R$ 1.234,56" parses
// as 1234.56. It reports false for empty or unparseable input.
func ParseDecimal(s string) (decimal.Decimal, bool) {
	v := reNonNumeric.ReplaceAllString(s, "")

	switch {
	case reGroupedBR.MatchString(v):
		v = strings.ReplaceAll(v, ".", "")
		v = strings.Replace(v, ",", ".", 1)
	case strings.Contains(v, ","):
		v = strings.ReplaceAll(v, ".", "")
		v = strings.ReplaceAll(v, ",", ".")
	}

	if v == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatBRL renders an amount the way the invoices print it, e.g. "R$63.263,62".
func FormatBRL(d decimal.Decimal) string {
	currency := money.GetCurrency(CurrencyBRL)
	multiplier := decimal.New(1, int32(currency.Fraction))
	cents := d.Mul(multiplier).Round(0).IntPart()
	return money.New(cents, CurrencyBRL).Display()
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
