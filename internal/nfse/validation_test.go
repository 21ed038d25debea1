package nfse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nfse/pkg/models"
)

func TestValidateConsistentRecord(t *testing.T) {
	rec := Parse(manausInvoice)
	assert.Empty(t, NewRecordValidation().Validate(rec))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		rec   *models.NotaFiscal
		field string
	}{
		{
			name:  "negative amount",
			rec:   &models.NotaFiscal{PISWithheld: dec("-1")},
			field: FieldPISWithheld,
		},
		{
			name: "total does not add up",
			rec: &models.NotaFiscal{
				SocialSecurityWithheld: dec("100"),
				IncomeTaxWithheld:      dec("15"),
				TotalWithholdings:      dec("200"),
			},
			field: FieldTotalWithholdings,
		},
		{
			name: "net differs from gross minus total",
			rec: &models.NotaFiscal{
				GrossAmount:       dec("1000"),
				TotalWithholdings: dec("100"),
				NetAmount:         dec("850"),
			},
			field: FieldNetAmount,
		},
		{
			name: "rate does not match tax",
			rec: &models.NotaFiscal{
				TaxBase:            dec("1000"),
				TaxRate:            dec("5"),
				ServiceTaxWithheld: dec("40"),
			},
			field: FieldTaxRate,
		},
		{
			name:  "tax base above gross",
			rec:   &models.NotaFiscal{GrossAmount: dec("100"), TaxBase: dec("200")},
			field: FieldTaxBase,
		},
	}

	v := NewRecordValidation()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := v.Validate(tt.rec)
			require.Len(t, warnings, 1)
			assert.Equal(t, tt.field, warnings[0].Field)
			assert.Contains(t, warnings[0].String(), tt.field)
		})
	}
}

func TestValidateAcceptsRounding(t *testing.T) {
	rec := &models.NotaFiscal{
		GrossAmount:        dec("1000"),
		TotalWithholdings:  dec("100"),
		NetAmount:          dec("900.01"),
		TaxBase:            dec("333.33"),
		TaxRate:            dec("3"),
		ServiceTaxWithheld: dec("10"),
	}
	assert.Empty(t, NewRecordValidation().Validate(rec))
}

func TestValidateZeroServiceTax(t *testing.T) {
	rec := &models.NotaFiscal{TaxBase: dec("1000"), TaxRate: dec("2"), ServiceTaxWithheld: dec("0")}
	assert.Empty(t, NewRecordValidation().Validate(rec))
}

func TestValidateNil(t *testing.T) {
	assert.Empty(t, NewRecordValidation().Validate(nil))
}
