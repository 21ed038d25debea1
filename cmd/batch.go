package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nfse/internal/config"
	"nfse/internal/export"
	"nfse/internal/logger"
	"nfse/internal/nfse"
	"nfse/internal/sheets"
	"nfse/pkg/models"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder-path]",
	Short: "Extract records from all invoice PDFs in a folder",
	Long: `Extract the structured record of every PDF invoice found under a folder.

Files are processed in parallel. Invoices are deduplicated by verification code:
the first file in path order is kept and later copies are reported as duplicates.
Records are written as JSON, CSV or XLSX to a file or stdout, and can be appended
to a Google Sheet. Progress is printed to stderr.

Environment variables:
  BATCH_WORKERS - Number of parallel workers (default: 4)
  GOOGLE_SHEET_URL - Google Sheets URL, required with --sheet
  GOOGLE_SHEET_WORKSHEET - Worksheet name (default: Notas_Fiscais)
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS - Service account for --sheet`,
	Example: `  # Export all invoices of a folder as CSV
  nfse batch ./notas --format csv -o notas.csv

  # Spreadsheet for the accounting team
  nfse batch ./notas --format xlsx -o notas.xlsx

  # Append new invoices to the configured Google Sheet
  nfse batch ./notas --sheet

  # Check what would be appended without writing
  nfse batch ./notas --sheet --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// Batch result statuses
const (
	statusSuccess   = "success"
	statusWarning   = "warning"
	statusDuplicate = "duplicate"
	statusError     = "error"
)

// BatchResult represents the result of processing a single PDF
type BatchResult struct {
	Filename string
	Record   *models.NotaFiscal
	Warnings []nfse.ValidationWarning
	Error    error
	Status   string
	Index    int // Original order index

	// DuplicateOf names the earlier file with the same verification code.
	// Empty for duplicates of codes already in the sheet.
	DuplicateOf string
}

// BatchRecord is one entry of the JSON batch output
type BatchRecord struct {
	File     string                   `json:"file"`
	Record   *models.NotaFiscal       `json:"record"`
	Warnings []nfse.ValidationWarning `json:"warnings,omitempty"`
}

// WorkerJob represents a PDF processing job
type WorkerJob struct {
	FilePath string
	Index    int
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	batchCmd.Flags().String("format", "json", "Output format: json, csv, xlsx")
	batchCmd.Flags().Int("workers", 0, "Number of parallel workers (default: BATCH_WORKERS)")
	batchCmd.Flags().String("text-backend", "", "Text backend: pdf, pdftotext, vision, documentai (default: TEXT_BACKEND)")
	batchCmd.Flags().Int("timeout", 1800, "Timeout for the whole batch in seconds")
	batchCmd.Flags().Bool("sheet", false, "Append new records to the configured Google Sheet")
	batchCmd.Flags().Bool("dry-run", false, "Process files but don't write to Google Sheet")
	batchCmd.Flags().Bool("verbose", false, "Show detailed processing information")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	folderPath := args[0]
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	workers, _ := cmd.Flags().GetInt("workers")
	backend, _ := cmd.Flags().GetString("text-backend")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	toSheet, _ := cmd.Flags().GetBool("sheet")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose, _ := cmd.Flags().GetBool("verbose")

	format = strings.ToLower(format)
	if format != "json" && format != "csv" && format != "xlsx" {
		return fmt.Errorf("invalid output format: %s (must be 'json', 'csv' or 'xlsx')", format)
	}

	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if workers <= 0 {
		workers = cfg.BatchWorkers
	}
	if toSheet {
		if err := cfg.RequireSheet(); err != nil {
			return err
		}
	}

	log.Info().
		Str("folder", folderPath).
		Str("format", format).
		Int("workers", workers).
		Bool("sheet", toSheet).
		Bool("dry_run", dryRun).
		Msg("Starting batch extraction")

	progress := cmd.ErrOrStderr()

	fmt.Fprintln(progress, strings.Repeat("=", 80))
	fmt.Fprintln(progress, "                         NFS-e BATCH EXTRACTION")
	fmt.Fprintln(progress, strings.Repeat("=", 80))
	fmt.Fprintf(progress, "Folder: %s\n", folderPath)
	if toSheet && dryRun {
		fmt.Fprintln(progress, "Mode: Dry Run (no Google Sheets update)")
	}
	fmt.Fprintln(progress)

	ctx, cancel := createContextWithTimeout(timeoutSecs, log)
	defer cancel()

	pdfFiles, err := findPDFFiles(folderPath)
	if err != nil {
		return fmt.Errorf("failed to find PDF files: %w", err)
	}

	if len(pdfFiles) == 0 {
		fmt.Fprintln(progress, "No PDF files found in folder.")
		return nil
	}

	source, err := createTextSource(ctx, cfg, backend, log)
	if err != nil {
		return err
	}
	extractor := nfse.NewExtractor(source)

	var sheetsService *sheets.Service
	seen := map[string]bool{}
	if toSheet {
		sheetsService, err = sheets.NewSheetsService(ctx, cfg.GoogleSheetURL)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		seen, err = sheetsService.ExistingCodes(ctx, cfg.GoogleSheetWorksheet)
		if err != nil {
			return fmt.Errorf("failed to read existing invoices from Google Sheet: %w", err)
		}
		log.Info().Int("existing", len(seen)).Msg("Loaded verification codes already in sheet")
	}

	fmt.Fprintf(progress, "Processing %d PDFs with %d parallel workers...\n\n", len(pdfFiles), workers)

	results := processPDFsInParallel(ctx, pdfFiles, extractor, workers, progress, log, verbose)
	markDuplicates(results, seen)

	fmt.Fprintln(progress)
	printResults(progress, results)

	counts := map[string]int{}
	for _, result := range results {
		counts[result.Status]++
	}

	fmt.Fprintln(progress)
	fmt.Fprintln(progress, strings.Repeat("=", 50))
	fmt.Fprintln(progress, "                 RESULT")
	fmt.Fprintln(progress, strings.Repeat("=", 50))
	fmt.Fprintf(progress, "Successful: %d\n", counts[statusSuccess])
	if counts[statusWarning] > 0 {
		fmt.Fprintf(progress, "With warnings: %d\n", counts[statusWarning])
	}
	if counts[statusDuplicate] > 0 {
		fmt.Fprintf(progress, "Duplicates skipped: %d\n", counts[statusDuplicate])
	}
	if counts[statusError] > 0 {
		fmt.Fprintf(progress, "Errors: %d\n", counts[statusError])
	}
	fmt.Fprintln(progress)

	data, err := encodeBatch(format, cfg.GoogleSheetWorksheet, results)
	if err != nil {
		return err
	}
	if err := writeOutput(cmd, data, outputPath, log); err != nil {
		return err
	}

	if toSheet && !dryRun {
		rows := batchRows(results)

		fmt.Fprintln(progress, "Writing records to Google Sheet...")
		if err := sheetsService.AppendRows(ctx, cfg.GoogleSheetWorksheet, rows); err != nil {
			return fmt.Errorf("failed to write to Google Sheet: %w", err)
		}

		fmt.Fprintf(progress, "Sheet: %s\n", cfg.GoogleSheetWorksheet)
		fmt.Fprintf(progress, "Rows added: %d\n", len(rows))
		fmt.Fprintf(progress, "URL: %s\n", cfg.GoogleSheetURL)
	}

	fmt.Fprintln(progress, strings.Repeat("=", 80))

	log.Info().
		Int("total", len(pdfFiles)).
		Int("success", counts[statusSuccess]).
		Int("warnings", counts[statusWarning]).
		Int("duplicates", counts[statusDuplicate]).
		Int("errors", counts[statusError]).
		Msg("Batch extraction completed")

	return nil
}

// findPDFFiles finds all PDF files in the specified folder
func findPDFFiles(folderPath string) ([]string, error) {
	var pdfFiles []string

	err := filepath.Walk(folderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".pdf") {
			pdfFiles = append(pdfFiles, path)
		}

		return nil
	})

	return pdfFiles, err
}

// processSinglePDF extracts the record of a single PDF file
func processSinglePDF(ctx context.Context, pdfPath string, extractor nfse.RecordExtractor, log zerolog.Logger, verbose bool) BatchResult {
	result := BatchResult{
		Status: statusError,
	}

	record, trace, err := extractor.ExtractWithTrace(ctx, pdfPath)
	if err != nil {
		result.Error = err
		return result
	}

	result.Record = record
	result.Warnings = nfse.NewRecordValidation().Validate(record)
	result.Status = statusSuccess

	if len(result.Warnings) > 0 || trace[nfse.FieldVerificationCode] == nfse.SourceSynthetic {
		result.Status = statusWarning
	}

	if verbose {
		event := log.Info().
			Str("file", pdfPath).
			Str("verification_code", record.VerificationCode).
			Int("warnings", len(result.Warnings))
		if record.InvoiceNumber != nil {
			event = event.Str("invoice_number", *record.InvoiceNumber)
		}
		if record.GrossAmount != nil {
			event = event.Str("gross_amount", record.GrossAmount.StringFixed(2))
		}
		event.Msg("PDF processed successfully")
	}

	return result
}

// processPDFsInParallel processes PDFs using a worker pool pattern
func processPDFsInParallel(ctx context.Context, pdfFiles []string, extractor nfse.RecordExtractor, numWorkers int, progress io.Writer, log zerolog.Logger, verbose bool) []BatchResult {
	jobs := make(chan WorkerJob, len(pdfFiles))
	results := make([]BatchResult, len(pdfFiles))

	var processedCount int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for job := range jobs {
				log.Debug().
					Int("worker", workerID).
					Str("file", job.FilePath).
					Int("index", job.Index+1).
					Msg("Worker processing PDF")

				result := processSinglePDF(ctx, job.FilePath, extractor, log, verbose)
				result.Index = job.Index
				result.Filename = filepath.Base(job.FilePath)

				results[job.Index] = result

				mu.Lock()
				processedCount++
				fmt.Fprintf(progress, "[%d/%d] %s\n", processedCount, len(pdfFiles), result.Filename)
				mu.Unlock()
			}
		}(w)
	}

	for i, pdfFile := range pdfFiles {
		jobs <- WorkerJob{
			FilePath: pdfFile,
			Index:    i,
		}
	}
	close(jobs)

	wg.Wait()

	return results
}

// markDuplicates flags results whose verification code is in seen or was already
// produced by an earlier file. seen is updated with the codes kept.
func markDuplicates(results []BatchResult, seen map[string]bool) {
	firstFile := map[string]string{}
	for i := range results {
		rec := results[i].Record
		if rec == nil {
			continue
		}
		if seen[rec.VerificationCode] {
			results[i].Status = statusDuplicate
			results[i].DuplicateOf = firstFile[rec.VerificationCode]
			continue
		}
		seen[rec.VerificationCode] = true
		firstFile[rec.VerificationCode] = results[i].Filename
	}
}

// printResults writes one status line per file, in path order
func printResults(w io.Writer, results []BatchResult) {
	for i, result := range results {
		fmt.Fprintf(w, "[%d/%d] %s - %s", i+1, len(results), result.Filename, getStatusEmoji(result.Status))
		switch {
		case result.Error != nil:
			fmt.Fprintf(w, " (%s)", result.Error.Error())
		case result.Status == statusDuplicate && result.DuplicateOf != "":
			fmt.Fprintf(w, " (%s, same as %s)", result.Record.VerificationCode, result.DuplicateOf)
		case result.Status == statusDuplicate:
			fmt.Fprintf(w, " (%s, already in sheet)", result.Record.VerificationCode)
		case result.Record != nil && result.Record.GrossAmount != nil:
			fmt.Fprintf(w, " (%s)", nfse.FormatBRL(*result.Record.GrossAmount))
		}
		fmt.Fprintln(w)
	}
}

// isExported reports whether the result carries a record that belongs in the output
func (r BatchResult) isExported() bool {
	return r.Record != nil && r.Status != statusDuplicate
}

func batchRows(results []BatchResult) []export.Row {
	var rows []export.Row
	for _, r := range results {
		if r.isExported() {
			rows = append(rows, export.NewRow(r.Filename, r.Record))
		}
	}
	return rows
}

// encodeBatch renders the exported records in format
func encodeBatch(format, sheet string, results []BatchResult) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case "csv":
		if err := export.WriteCSV(&buf, batchRows(results)); err != nil {
			return nil, err
		}
	case "xlsx":
		if err := export.WriteXLSX(&buf, sheet, batchRows(results)); err != nil {
			return nil, err
		}
	default:
		records := []BatchRecord{}
		for _, r := range results {
			if r.isExported() {
				records = append(records, BatchRecord{File: r.Filename, Record: r.Record, Warnings: r.Warnings})
			}
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal results: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}

// getStatusEmoji returns an emoji for the processing status
func getStatusEmoji(status string) string {
	switch status {
	case statusSuccess:
		return "✅"
	case statusWarning:
		return "⚠️"
	case statusDuplicate:
		return "🔁"
	case statusError:
		return "❌"
	default:
		return "❓"
	}
}
