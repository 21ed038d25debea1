package nfse

import (
	"github.com/shopspring/decimal"

	"nfse/pkg/models"
)

// Derived rates keep this many decimal places.
const ratePrecision = 4

var hundred = decimal.NewFromInt(100)

// derive fills total_withholdings, net_amount and tax_rate when they were not matched.
// Negative results are discarded.
func derive(rec *models.NotaFiscal, trace Trace) {
	if rec.TotalWithholdings == nil {
		if sum, ok := sumKnown(rec.FederalWithholdings()...); ok {
			if setNonNegative(&rec.TotalWithholdings, sum) {
				trace[FieldTotalWithholdings] = SourceDerived
			}
		}
	}

	if rec.NetAmount == nil && rec.GrossAmount != nil {
		var withheld decimal.Decimal
		var ok bool
		if rec.TotalWithholdings != nil {
			withheld, ok = *rec.TotalWithholdings, true
		} else {
			withheld, ok = sumKnown(append(rec.FederalWithholdings(), rec.ServiceTaxWithheld)...)
		}
		if ok && setNonNegative(&rec.NetAmount, rec.GrossAmount.Sub(withheld)) {
			trace[FieldNetAmount] = SourceDerived
		}
	}

	if rec.TaxRate == nil && rec.ServiceTaxWithheld != nil && rec.TaxBase != nil && rec.TaxBase.IsPositive() {
		rate := rec.ServiceTaxWithheld.Div(*rec.TaxBase).Mul(hundred).Round(ratePrecision)
		if setNonNegative(&rec.TaxRate, rate) {
			trace[FieldTaxRate] = SourceDerived
		}
	}
}

// sumKnown adds the non-nil values. It reports false when every value is nil.
func sumKnown(values ...*decimal.Decimal) (decimal.Decimal, bool) {
	sum, known := decimal.Zero, false
	for _, v := range values {
		if v != nil {
			sum = sum.Add(*v)
			known = true
		}
	}
	return sum, known
}

func setNonNegative(dst **decimal.Decimal, v decimal.Decimal) bool {
	if v.IsNegative() {
		return false
	}
	*dst = decimalPtr(v)
	return true
}
