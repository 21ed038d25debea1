package nfse

import (
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"nfse/internal/logger"
	"nfse/pkg/models"
)

// Field names as they appear in the record's JSON and in a Trace.
const (
	FieldVerificationCode       = "verification_code"
	FieldInvoiceNumber          = "invoice_number"
	FieldIssueDate              = "issue_date"
	FieldPayerName              = "payer_name"
	FieldServiceDescription     = "service_description"
	FieldGrossAmount            = "gross_amount"
	FieldTaxBase                = "tax_base"
	FieldTaxRate                = "tax_rate"
	FieldServiceTaxWithheld     = "service_tax_withheld"
	FieldSocialSecurityWithheld = "social_security_withheld"
	FieldPISWithheld            = "pis_withheld"
	FieldCOFINSWithheld         = "cofins_withheld"
	FieldCSLLWithheld           = "csll_withheld"
	FieldIncomeTaxWithheld      = "income_tax_withheld"
	FieldISSQNWithheld          = "issqn_withheld"
	FieldOtherDeductions        = "other_deductions"
	FieldTotalWithholdings      = "total_withholdings"
	FieldNetAmount              = "net_amount"
	FieldPaymentStatus          = "payment_status"
)

// Trace records how each populated field was obtained: the name of the strategy that
// matched, or SourceDerived, SourceSynthetic or SourceDefault.
type Trace map[string]string

// Derived reports whether field was computed from other fields.
func (t Trace) Derived(field string) bool {
	return t[field] == SourceDerived
}

// Parser turns invoice text into records. It holds no per-document state and is
// safe for concurrent use.
type Parser struct {
	log     zerolog.Logger
	newCode func() string
}

// NewParser creates a parser that generates placeholder codes with SyntheticCode.
func NewParser() *Parser {
	return &Parser{
		log:     logger.WithComponent("nfse-parser"),
		newCode: SyntheticCode,
	}
}

// Parse extracts a record from invoice text with a fresh parser.
func Parse(text string) *models.NotaFiscal {
	return NewParser().Parse(text)
}

// Parse extracts a record from invoice text. It never fails: fields that cannot be
// found are nil (or zero for retention tables that are present).
func (p *Parser) Parse(text string) *models.NotaFiscal {
	rec, _ := p.ParseWithTrace(text)
	return rec
}

// ParseWithTrace is Parse that also reports where every value came from.
func (p *Parser) ParseWithTrace(text string) (*models.NotaFiscal, Trace) {
	doc := NewDocument(text)
	rec := &models.NotaFiscal{PaymentStatus: models.DefaultPaymentStatus}
	trace := Trace{}

	code, strategy := verificationCode(doc)
	if code == "" {
		code, strategy = p.newCode(), SourceSynthetic
		p.log.Debug().Str("code", code).Msg("Verification code not found, generated placeholder")
	}
	rec.VerificationCode = code
	trace[FieldVerificationCode] = strategy

	var s string
	if rec.InvoiceNumber, s = invoiceNumber(doc); s != "" {
		trace[FieldInvoiceNumber] = s
	}

	date, s, rawDate := issueDate(doc)
	switch {
	case date != nil:
		rec.IssueDate = date
		trace[FieldIssueDate] = s
	case rawDate != "":
		p.log.Warn().Str("strategy", s).Str("value", rawDate).Msg("Discarding unparseable issue date")
	}

	if rec.PayerName, s = payerName(doc); s != "" {
		trace[FieldPayerName] = s
	}
	if rec.ServiceDescription, s = serviceDescription(doc); s != "" {
		trace[FieldServiceDescription] = s
	}

	p.extractAmounts(doc, rec, trace)
	p.extractRetentions(doc, rec, trace)
	derive(rec, trace)

	if status, s := paymentStatus(doc); status != "" {
		rec.PaymentStatus = status
		trace[FieldPaymentStatus] = s
	} else {
		trace[FieldPaymentStatus] = SourceDefault
	}

	p.log.Debug().
		Str("verification_code", rec.VerificationCode).
		Interface("trace", trace).
		Msg("Invoice text parsed")

	return rec, trace
}

func (p *Parser) extractAmounts(doc Document, rec *models.NotaFiscal, trace Trace) {
	fields := []struct {
		name  string
		chain Chain
		dst   **decimal.Decimal
	}{
		{FieldGrossAmount, grossChain, &rec.GrossAmount},
		{FieldTaxBase, taxBaseChain, &rec.TaxBase},
		{FieldServiceTaxWithheld, serviceTaxChain, &rec.ServiceTaxWithheld},
		{FieldTaxRate, taxRateChain, &rec.TaxRate},
	}

	for _, f := range fields {
		if v, s := amountField(doc, f.chain); v != nil {
			*f.dst = v
			trace[f.name] = s
		}
	}
}

func (p *Parser) extractRetentions(doc Document, rec *models.NotaFiscal, trace Trace) {
	labelText := reINSSBase.ReplaceAllString(doc.Collapsed, " ")

	federal := federalGroup.extract(doc, labelText)
	federalDst := []**decimal.Decimal{
		&rec.SocialSecurityWithheld,
		&rec.PISWithheld,
		&rec.COFINSWithheld,
		&rec.CSLLWithheld,
		&rec.IncomeTaxWithheld,
	}
	assignGroup(federalGroup, federal, federalDst, trace)

	municipal := municipalGroup.extract(doc, labelText)
	municipalDst := []**decimal.Decimal{
		&rec.ISSQNWithheld,
		&rec.OtherDeductions,
		&rec.TotalWithholdings,
		&rec.NetAmount,
	}
	assignGroup(municipalGroup, municipal, municipalDst, trace)

	p.log.Debug().
		Strs("federal", federal.strategies).
		Strs("municipal", municipal.strategies).
		Msg("Retention tables extracted")
}

func assignGroup(g retentionGroup, values groupValues, dst []**decimal.Decimal, trace Trace) {
	for i, f := range g.fields {
		if values.values[i] == nil {
			continue
		}
		*dst[i] = values.values[i]
		trace[f.name] = values.strategies[i]
	}
}
