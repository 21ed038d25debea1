// Package export writes extracted invoice records as spreadsheet rows: CSV through
// gocarina/gocsv and XLSX through xuri/excelize. The same row layout feeds the Google
// Sheets writer.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"nfse/pkg/models"
)

// DefaultSheet is the worksheet name used when none is given.
const DefaultSheet = "Notas_Fiscais"

// Amount is a nullable money value. It renders as a plain decimal, or empty when unknown.
type Amount struct {
	Value *decimal.Decimal
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (a Amount) MarshalCSV() (string, error) {
	if a.Value == nil {
		return "", nil
	}
	return a.Value.String(), nil
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (a *Amount) UnmarshalCSV(s string) error {
	if s == "" {
		a.Value = nil
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", s, err)
	}
	a.Value = &d
	return nil
}

func (a Amount) cell() interface{} {
	if a.Value == nil {
		return ""
	}
	return a.Value.InexactFloat64()
}

// Row is one record flattened for tabular output. Column order follows the field order.
type Row struct {
	File                   string `csv:"file"`
	VerificationCode       string `csv:"verification_code"`
	InvoiceNumber          string `csv:"invoice_number"`
	IssueDate              string `csv:"issue_date"`
	PayerName              string `csv:"payer_name"`
	ServiceDescription     string `csv:"service_description"`
	GrossAmount            Amount `csv:"gross_amount"`
	TaxBase                Amount `csv:"tax_base"`
	TaxRate                Amount `csv:"tax_rate"`
	ServiceTaxWithheld     Amount `csv:"service_tax_withheld"`
	SocialSecurityWithheld Amount `csv:"social_security_withheld"`
	PISWithheld            Amount `csv:"pis_withheld"`
	COFINSWithheld         Amount `csv:"cofins_withheld"`
	CSLLWithheld           Amount `csv:"csll_withheld"`
	IncomeTaxWithheld      Amount `csv:"income_tax_withheld"`
	ISSQNWithheld          Amount `csv:"issqn_withheld"`
	OtherDeductions        Amount `csv:"other_deductions"`
	TotalWithholdings      Amount `csv:"total_withholdings"`
	NetAmount              Amount `csv:"net_amount"`
	PaymentStatus          string `csv:"payment_status"`
}

// Columns are the header names, in the order of Row's fields.
var Columns = []string{
	"file", "verification_code", "invoice_number", "issue_date", "payer_name", "service_description",
	"gross_amount", "tax_base", "tax_rate", "service_tax_withheld",
	"social_security_withheld", "pis_withheld", "cofins_withheld", "csll_withheld", "income_tax_withheld",
	"issqn_withheld", "other_deductions", "total_withholdings", "net_amount",
	"payment_status",
}

// NewRow flattens rec. file is the source document name.
func NewRow(file string, rec *models.NotaFiscal) Row {
	row := Row{
		File:                   file,
		VerificationCode:       rec.VerificationCode,
		InvoiceNumber:          deref(rec.InvoiceNumber),
		PayerName:              deref(rec.PayerName),
		ServiceDescription:     deref(rec.ServiceDescription),
		GrossAmount:            Amount{rec.GrossAmount},
		TaxBase:                Amount{rec.TaxBase},
		TaxRate:                Amount{rec.TaxRate},
		ServiceTaxWithheld:     Amount{rec.ServiceTaxWithheld},
		SocialSecurityWithheld: Amount{rec.SocialSecurityWithheld},
		PISWithheld:            Amount{rec.PISWithheld},
		COFINSWithheld:         Amount{rec.COFINSWithheld},
		CSLLWithheld:           Amount{rec.CSLLWithheld},
		IncomeTaxWithheld:      Amount{rec.IncomeTaxWithheld},
		ISSQNWithheld:          Amount{rec.ISSQNWithheld},
		OtherDeductions:        Amount{rec.OtherDeductions},
		TotalWithholdings:      Amount{rec.TotalWithholdings},
		NetAmount:              Amount{rec.NetAmount},
		PaymentStatus:          rec.PaymentStatus,
	}
	if rec.IssueDate != nil {
		row.IssueDate = rec.IssueDate.UTC().Format(time.RFC3339)
	}
	return row
}

// Values returns the row as spreadsheet cells. Amounts are numbers, unknown values empty.
func (r Row) Values() []interface{} {
	return []interface{}{
		r.File,
		r.VerificationCode,
		r.InvoiceNumber,
		r.IssueDate,
		r.PayerName,
		r.ServiceDescription,
		r.GrossAmount.cell(),
		r.TaxBase.cell(),
		r.TaxRate.cell(),
		r.ServiceTaxWithheld.cell(),
		r.SocialSecurityWithheld.cell(),
		r.PISWithheld.cell(),
		r.COFINSWithheld.cell(),
		r.CSLLWithheld.cell(),
		r.IncomeTaxWithheld.cell(),
		r.ISSQNWithheld.cell(),
		r.OtherDeductions.cell(),
		r.TotalWithholdings.cell(),
		r.NetAmount.cell(),
		r.PaymentStatus,
	}
}

// WriteCSV writes rows with a header line. The header is written even without rows.
func WriteCSV(w io.Writer, rows []Row) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write CSV: %w", err)
	}
	return nil
}

// ReadCSV reads rows written by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	var rows []Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

// WriteXLSX writes rows to a workbook with a single worksheet named sheet.
func WriteXLSX(w io.Writer, sheet string, rows []Row) error {
	const op = "WriteXLSX"

	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("%s: failed to name worksheet: %w", op, err)
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("%s: failed to write header: %w", op, err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		values := row.Values()
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("%s: failed to write row %d: %w", op, i+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("%s: failed to create header style: %w", op, err)
	}
	if err := f.SetRowStyle(sheet, 1, 1, bold); err != nil {
		return fmt.Errorf("%s: failed to style header: %w", op, err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(Columns))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 20); err != nil {
		return fmt.Errorf("%s: failed to size columns: %w", op, err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("%s: failed to write workbook: %w", op, err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
