package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPaymentStatus is the workflow state given to records whose status label is absent.
const DefaultPaymentStatus = "Pending"

// NotaFiscal is the structured record extracted from one municipal service invoice.
// A nil pointer means the value was not found in the document.
type NotaFiscal struct {
	// Identification
	VerificationCode string     `json:"verification_code"` // Authenticity code, never empty (synthetic if absent)
	InvoiceNumber    *string    `json:"invoice_number"`    // Digits only
	IssueDate        *time.Time `json:"issue_date"`        // Issue date and time, UTC

	// Parties and service
	PayerName          *string `json:"payer_name"`          // Nome do tomador do serviço
	ServiceDescription *string `json:"service_description"` // Discriminação do serviço

	// Amounts
	GrossAmount        *decimal.Decimal `json:"gross_amount"`
	TaxBase            *decimal.Decimal `json:"tax_base"`
	TaxRate            *decimal.Decimal `json:"tax_rate"` // Percentage
	ServiceTaxWithheld *decimal.Decimal `json:"service_tax_withheld"`

	// Five-column retention table
	SocialSecurityWithheld *decimal.Decimal `json:"social_security_withheld"` // INSS
	PISWithheld            *decimal.Decimal `json:"pis_withheld"`
	COFINSWithheld         *decimal.Decimal `json:"cofins_withheld"`
	CSLLWithheld           *decimal.Decimal `json:"csll_withheld"`
	IncomeTaxWithheld      *decimal.Decimal `json:"income_tax_withheld"` // IRRF

	// Four-column retention table
	ISSQNWithheld     *decimal.Decimal `json:"issqn_withheld"`
	OtherDeductions   *decimal.Decimal `json:"other_deductions"`
	TotalWithholdings *decimal.Decimal `json:"total_withholdings"`
	NetAmount         *decimal.Decimal `json:"net_amount"`

	PaymentStatus string `json:"payment_status"`
}

// AmountField pairs a monetary field name with its value.
type AmountField struct {
	Name  string
	Value *decimal.Decimal
}

// Amounts lists the monetary fields in catalog order.
func (n *NotaFiscal) Amounts() []AmountField {
	return []AmountField{
		{"gross_amount", n.GrossAmount},
		{"tax_base", n.TaxBase},
		{"tax_rate", n.TaxRate},
		{"service_tax_withheld", n.ServiceTaxWithheld},
		{"social_security_withheld", n.SocialSecurityWithheld},
		{"pis_withheld", n.PISWithheld},
		{"cofins_withheld", n.COFINSWithheld},
		{"csll_withheld", n.CSLLWithheld},
		{"income_tax_withheld", n.IncomeTaxWithheld},
		{"issqn_withheld", n.ISSQNWithheld},
		{"other_deductions", n.OtherDeductions},
		{"total_withholdings", n.TotalWithholdings},
		{"net_amount", n.NetAmount},
	}
}

// FederalWithholdings returns the five-column retention fields in table order.
func (n *NotaFiscal) FederalWithholdings() []*decimal.Decimal {
	return []*decimal.Decimal{
		n.SocialSecurityWithheld,
		n.PISWithheld,
		n.COFINSWithheld,
		n.CSLLWithheld,
		n.IncomeTaxWithheld,
	}
}
