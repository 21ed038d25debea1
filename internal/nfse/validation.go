package nfse

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"nfse/internal/logger"
	"nfse/pkg/models"
)

// Tolerance is the largest difference accepted between related amounts.
var Tolerance = decimal.RequireFromString("0.01")

// ValidationWarning flags an inconsistency in an extracted record.
type ValidationWarning struct {
	Field   string      `json:"field"`
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message"`
}

// String implements fmt.Stringer.
func (w ValidationWarning) String() string {
	if w.Value == nil {
		return fmt.Sprintf("%s: %s", w.Field, w.Message)
	}
	return fmt.Sprintf("%s: %s (value: %v)", w.Field, w.Message, w.Value)
}

// RecordValidation cross-checks the amounts of an extracted record.
type RecordValidation struct {
	log zerolog.Logger
}

// NewRecordValidation creates a new record validation service
func NewRecordValidation() *RecordValidation {
	return &RecordValidation{
		log: logger.WithComponent("record-validation"),
	}
}

// Validate returns the inconsistencies found in rec. It never modifies the record.
func (v *RecordValidation) Validate(rec *models.NotaFiscal) []ValidationWarning {
	var warnings []ValidationWarning
	if rec == nil {
		return warnings
	}

	for _, f := range rec.Amounts() {
		if f.Value != nil && f.Value.IsNegative() {
			warnings = append(warnings, ValidationWarning{Field: f.Name, Value: f.Value.String(), Message: "amount is negative"})
		}
	}

	warnings = append(warnings, v.checkTotal(rec)...)
	warnings = append(warnings, v.checkNet(rec)...)
	warnings = append(warnings, v.checkRate(rec)...)
	warnings = append(warnings, v.checkBounds(rec)...)

	if len(warnings) > 0 {
		messages := make([]string, 0, len(warnings))
		for _, w := range warnings {
			messages = append(messages, w.String())
		}
		v.log.Warn().
			Str("verification_code", rec.VerificationCode).
			Strs("warnings", messages).
			Msg("Record failed consistency checks")
	}

	return warnings
}

// checkTotal accepts a total equal to the five federal withholdings, with or without
// the municipal ISSQN and other deductions columns.
func (v *RecordValidation) checkTotal(rec *models.NotaFiscal) []ValidationWarning {
	if rec.TotalWithholdings == nil {
		return nil
	}
	federal, ok := sumKnown(rec.FederalWithholdings()...)
	if !ok {
		return nil
	}

	withMunicipal, _ := sumKnown(&federal, rec.ISSQNWithheld, rec.OtherDeductions)
	if within(*rec.TotalWithholdings, federal) || within(*rec.TotalWithholdings, withMunicipal) {
		return nil
	}

	return []ValidationWarning{{
		Field:   FieldTotalWithholdings,
		Value:   rec.TotalWithholdings.String(),
		Message: fmt.Sprintf("does not match the sum of withholdings (%s)", federal.StringFixed(2)),
	}}
}

func (v *RecordValidation) checkNet(rec *models.NotaFiscal) []ValidationWarning {
	if rec.NetAmount == nil || rec.GrossAmount == nil || rec.TotalWithholdings == nil {
		return nil
	}
	expected := rec.GrossAmount.Sub(*rec.TotalWithholdings)
	if within(*rec.NetAmount, expected) {
		return nil
	}
	return []ValidationWarning{{
		Field:   FieldNetAmount,
		Value:   rec.NetAmount.String(),
		Message: fmt.Sprintf("differs from gross amount minus total withholdings (%s)", expected.StringFixed(2)),
	}}
}

func (v *RecordValidation) checkRate(rec *models.NotaFiscal) []ValidationWarning {
	if rec.TaxRate == nil || rec.ServiceTaxWithheld == nil || rec.ServiceTaxWithheld.IsZero() ||
		rec.TaxBase == nil || !rec.TaxBase.IsPositive() {
		return nil
	}
	expected := rec.TaxBase.Mul(*rec.TaxRate).Div(hundred)
	if within(*rec.ServiceTaxWithheld, expected) {
		return nil
	}
	return []ValidationWarning{{
		Field:   FieldTaxRate,
		Value:   rec.TaxRate.String(),
		Message: fmt.Sprintf("tax base times rate gives %s, not the withheld service tax", expected.StringFixed(2)),
	}}
}

func (v *RecordValidation) checkBounds(rec *models.NotaFiscal) []ValidationWarning {
	if rec.GrossAmount == nil {
		return nil
	}
	var warnings []ValidationWarning
	for _, f := range []models.AmountField{
		{Name: FieldTaxBase, Value: rec.TaxBase},
		{Name: FieldTotalWithholdings, Value: rec.TotalWithholdings},
		{Name: FieldNetAmount, Value: rec.NetAmount},
	} {
		if f.Value != nil && f.Value.Sub(*rec.GrossAmount).GreaterThan(Tolerance) {
			warnings = append(warnings, ValidationWarning{
				Field:   f.Name,
				Value:   f.Value.String(),
				Message: "exceeds the gross amount",
			})
		}
	}
	return warnings
}

func within(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}
