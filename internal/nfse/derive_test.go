package nfse

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"nfse/pkg/models"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestDerive(t *testing.T) {
	t.Run("total and net from the federal table", func(t *testing.T) {
		rec := &models.NotaFiscal{
			GrossAmount:            dec("1000"),
			SocialSecurityWithheld: dec("110"),
			PISWithheld:            dec("6.50"),
			COFINSWithheld:         dec("30"),
			CSLLWithheld:           dec("10"),
			IncomeTaxWithheld:      dec("15"),
		}
		trace := Trace{}
		derive(rec, trace)

		assertDecimal(t, "171.50", rec.TotalWithholdings)
		assertDecimal(t, "828.50", rec.NetAmount)
		assert.True(t, trace.Derived(FieldTotalWithholdings))
		assert.True(t, trace.Derived(FieldNetAmount))
	})

	t.Run("matched values are kept", func(t *testing.T) {
		rec := &models.NotaFiscal{
			GrossAmount:            dec("1000"),
			SocialSecurityWithheld: dec("110"),
			TotalWithholdings:      dec("200"),
			NetAmount:              dec("800"),
		}
		trace := Trace{}
		derive(rec, trace)

		assertDecimal(t, "200", rec.TotalWithholdings)
		assertDecimal(t, "800", rec.NetAmount)
		assert.Empty(t, trace)
	})

	t.Run("net needs a known withholding", func(t *testing.T) {
		rec := &models.NotaFiscal{GrossAmount: dec("1000")}
		derive(rec, Trace{})
		assert.Nil(t, rec.NetAmount)
		assert.Nil(t, rec.TotalWithholdings)
	})

	t.Run("negative net is discarded", func(t *testing.T) {
		rec := &models.NotaFiscal{GrossAmount: dec("100"), TotalWithholdings: dec("150")}
		trace := Trace{}
		derive(rec, trace)
		assert.Nil(t, rec.NetAmount)
		assert.NotContains(t, trace, FieldNetAmount)
	})

	t.Run("rate from tax base", func(t *testing.T) {
		rec := &models.NotaFiscal{TaxBase: dec("63263.62"), ServiceTaxWithheld: dec("3163.18")}
		trace := Trace{}
		derive(rec, trace)
		assertDecimal(t, "5", rec.TaxRate)
		assert.True(t, trace.Derived(FieldTaxRate))
	})

	t.Run("no rate without a positive base", func(t *testing.T) {
		rec := &models.NotaFiscal{TaxBase: dec("0"), ServiceTaxWithheld: dec("10")}
		derive(rec, Trace{})
		assert.Nil(t, rec.TaxRate)
	})
}

// Derived totals and nets always agree with the values they came from.
func TestDerivedValuesAreConsistent(t *testing.T) {
	cases := []struct{ gross, inss, irrf string }{
		{"1.000,00", "110,00", "15,00"},
		{"63.263,62", "6.959,00", "948,95"},
		{"0,01", "0,00", "0,01"},
		{"250.000,00", "27.500,00", "3.750,00"},
	}

	for _, c := range cases {
		text := "Valor Total: R$ " + c.gross + "\nINSS: R$ " + c.inss + "\nIRRF: R$ " + c.irrf
		rec, trace := NewParser().ParseWithTrace(text)

		if !assert.True(t, trace.Derived(FieldTotalWithholdings), text) {
			continue
		}
		sum, _ := sumKnown(rec.FederalWithholdings()...)
		assert.True(t, rec.TotalWithholdings.Equal(sum), text)

		if trace.Derived(FieldNetAmount) {
			assert.True(t, rec.NetAmount.Equal(rec.GrossAmount.Sub(*rec.TotalWithholdings)), text)
		}
	}
}
