package cmd

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"nfse/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "nfse",
	Short: "Extract structured records from Brazilian service invoice PDFs",
	Long: `nfse reads municipal service invoices (notas fiscais de serviço eletrônicas)
and turns them into structured records: verification code, invoice number, issue
date, payer, service description, amounts and the federal and municipal
withholdings.

Text is acquired from the PDF text layer by default. Scanned invoices can be read
through pdftotext or Google Cloud OCR (Vision, Document AI). Records are printed as
JSON, exported as CSV or XLSX, or appended to a Google Sheet.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("nfse executed")

		fmt.Println("nfse - service invoice extractor")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Amounts are written as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
