package cmd

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"nfse/internal/config"
	"nfse/internal/logger"
	"nfse/internal/nfse"
	"nfse/pkg/models"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [pdf-file]",
	Short: "Show the acquired text and how each field was extracted",
	Long: `Print a preview of the acquired text followed by a table of every record field,
its value and the pattern that produced it. Derived fields are marked "derived",
placeholder codes "synthetic" and defaulted values "default". Amounts are shown in
Brazilian notation. Consistency warnings are listed at the end.`,
	Example: `  # Inspect an invoice with the default text backend
  nfse inspect nota.pdf

  # Show more of the raw text
  nfse inspect nota.pdf --preview 4000`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().Int("preview", 1500, "Characters of raw text to show (0 disables)")
	inspectCmd.Flags().String("text-backend", "", "Text backend: pdf, pdftotext, vision, documentai (default: TEXT_BACKEND)")
	inspectCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runInspect(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("inspect")

	preview, _ := cmd.Flags().GetInt("preview")
	backend, _ := cmd.Flags().GetString("text-backend")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	pdfPath := args[0]

	if _, err := validatePDFFile(pdfPath, log); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	source, err := createTextSource(ctx, cfg, backend, log)
	if err != nil {
		return err
	}

	result, err := source.ExtractText(ctx, pdfPath)
	if err != nil {
		return handleExtractionError(err, log)
	}

	record, trace := nfse.NewParser().ParseWithTrace(result.Text)
	warnings := nfse.NewRecordValidation().Validate(record)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File: %s\n", pdfPath)
	fmt.Fprintf(out, "Method: %s, pages: %d, characters: %d\n",
		result.Method, result.PageCount, utf8.RuneCountInString(result.Text))

	if preview > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, strings.Repeat("-", 80))
		fmt.Fprintln(out, textPreview(result.Text, preview))
		fmt.Fprintln(out, strings.Repeat("-", 80))
	}
	fmt.Fprintln(out)

	renderFieldTable(out, record, trace)

	if len(warnings) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Warnings:")
		for _, w := range warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	return nil
}

// textPreview returns at most limit characters of text
func textPreview(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "\n[...]"
}

func renderFieldTable(w io.Writer, rec *models.NotaFiscal, trace nfse.Trace) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value", "Source"})
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)

	table.Append([]string{nfse.FieldVerificationCode, rec.VerificationCode, trace[nfse.FieldVerificationCode]})
	table.Append([]string{nfse.FieldInvoiceNumber, stringValue(rec.InvoiceNumber), trace[nfse.FieldInvoiceNumber]})

	issueDate := "-"
	if rec.IssueDate != nil {
		issueDate = rec.IssueDate.Format("02/01/2006 15:04:05")
	}
	table.Append([]string{nfse.FieldIssueDate, issueDate, trace[nfse.FieldIssueDate]})
	table.Append([]string{nfse.FieldPayerName, stringValue(rec.PayerName), trace[nfse.FieldPayerName]})
	table.Append([]string{nfse.FieldServiceDescription, shorten(stringValue(rec.ServiceDescription), 60), trace[nfse.FieldServiceDescription]})

	for _, f := range rec.Amounts() {
		value := "-"
		if f.Value != nil {
			if f.Name == nfse.FieldTaxRate {
				value = f.Value.String() + "%"
			} else {
				value = nfse.FormatBRL(*f.Value)
			}
		}
		table.Append([]string{f.Name, value, trace[f.Name]})
	}

	table.Append([]string{nfse.FieldPaymentStatus, rec.PaymentStatus, trace[nfse.FieldPaymentStatus]})
	table.Render()
}

func shorten(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

func stringValue(s *string) string {
	if s == nil {
		return "-"
	}
	return strings.ReplaceAll(*s, "\n", " ")
}
