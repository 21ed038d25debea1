package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nfse/internal/config"
	"nfse/internal/logger"
	"nfse/internal/nfse"
	"nfse/pkg/models"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdf-file]",
	Short: "Extract the structured record from a service invoice PDF",
	Long: `Extract the structured record from a Brazilian municipal service invoice.

The record carries the verification code, invoice number, issue date, payer name,
service description, gross amount, tax base, ISS rate and amount, the federal
withholdings (INSS, PIS, COFINS, CSLL, IRRF), the municipal withholdings
(ISSQN, other deductions, total withholdings, net amount) and the payment status.
Fields that are not found are null. Totals, net amount and rate are computed when
the invoice does not print them.

--warnings adds consistency checks of the amounts. --trace adds which pattern
produced each field. With either flag the output wraps the record:
  {"record": {...}, "trace": {...}, "warnings": [...]}`,
	Example: `  # Print the record as JSON
  nfse extract nota.pdf

  # Save to a file, checking amount consistency
  nfse extract nota.pdf --warnings -o nota.json

  # Scanned invoice through Google Vision
  nfse extract nota.pdf --text-backend vision`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

// ExtractOutput is the JSON output when --warnings or --trace is set.
type ExtractOutput struct {
	Record   *models.NotaFiscal       `json:"record"`
	Trace    nfse.Trace               `json:"trace,omitempty"`
	Warnings []nfse.ValidationWarning `json:"warnings,omitempty"`
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().String("text-backend", "", "Text backend: pdf, pdftotext, vision, documentai (default: TEXT_BACKEND)")
	extractCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
	extractCmd.Flags().Bool("warnings", false, "Include amount consistency warnings")
	extractCmd.Flags().Bool("trace", false, "Include the strategy that produced each field")
}

func runExtract(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("extract")

	outputPath, _ := cmd.Flags().GetString("output")
	backend, _ := cmd.Flags().GetString("text-backend")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	withWarnings, _ := cmd.Flags().GetBool("warnings")
	withTrace, _ := cmd.Flags().GetBool("trace")

	pdfPath := args[0]

	log.Info().
		Str("file", pdfPath).
		Str("output", outputPath).
		Str("backend", backend).
		Int("timeout", timeoutSecs).
		Msg("Starting invoice extraction")

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

	record, trace, err := nfse.NewExtractor(source).ExtractWithTrace(ctx, pdfPath)
	if err != nil {
		return handleRecordError(err, log)
	}

	var warnings []nfse.ValidationWarning
	if withWarnings {
		warnings = nfse.NewRecordValidation().Validate(record)
		for _, w := range warnings {
			log.Warn().Str("field", w.Field).Interface("value", w.Value).Msg(w.Message)
		}
	}

	log.Info().
		Str("verification_code", record.VerificationCode).
		Str("payment_status", record.PaymentStatus).
		Int("warnings", len(warnings)).
		Msg("Invoice extracted")

	var output interface{} = record
	if withWarnings || withTrace {
		out := ExtractOutput{Record: record, Warnings: warnings}
		if withTrace {
			out.Trace = trace
		}
		output = out
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal results")
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	data = append(data, '\n')

	return writeOutput(cmd, data, outputPath, log)
}

// handleRecordError unwraps the extraction error to report the text source failure
func handleRecordError(err error, log zerolog.Logger) error {
	var extractionErr *nfse.ExtractionError
	if errors.As(err, &extractionErr) && extractionErr.Err != nil {
		return handleExtractionError(extractionErr.Err, log)
	}
	return handleExtractionError(err, log)
}
