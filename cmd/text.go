package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"nfse/internal/config"
	"nfse/internal/logger"
	"nfse/internal/textsource"
)

var textCmd = &cobra.Command{
	Use:   "text [pdf-file]",
	Short: "Print the raw text acquired from an invoice PDF",
	Long: `Acquire the plain text of a PDF with the configured text backend and print it
unchanged. This is the text the field extractor works on, which makes it the first
thing to look at when a field comes out empty.

Backends (TEXT_BACKEND or --text-backend):
  pdf         embedded text layer (default, no external tools)
  pdftotext   poppler's pdftotext -layout (PDFTOTEXT_PATH)
  vision      Google Cloud Vision OCR for scanned invoices
  documentai  Google Document AI OCR processor

Cloud backends read GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.`,
	Example: `  # Print the text layer of an invoice
  nfse text nota.pdf

  # Use pdftotext and save the result
  nfse text nota.pdf --text-backend pdftotext -o nota.txt

  # Include metadata and output as JSON
  nfse text nota.pdf --json`,
	Args: cobra.ExactArgs(1),
	RunE: runText,
}

// TextOutput represents the JSON output structure when --json flag is used
type TextOutput struct {
	Text               string    `json:"text"`
	Method             string    `json:"method"`
	PageCount          int       `json:"page_count,omitempty"`
	Confidence         float32   `json:"confidence,omitempty"`
	ProcessedAt        time.Time `json:"processed_at"`
	ProcessingDuration string    `json:"processing_duration"`
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(textCmd)

	textCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	textCmd.Flags().Bool("json", false, "Output as JSON with metadata")
	textCmd.Flags().String("text-backend", "", "Text backend: pdf, pdftotext, vision, documentai (default: TEXT_BACKEND)")
	textCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")
}

func runText(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("text")

	outputPath, _ := cmd.Flags().GetString("output")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	backend, _ := cmd.Flags().GetString("text-backend")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	pdfPath := args[0]

	log.Info().
		Str("file", pdfPath).
		Str("output", outputPath).
		Bool("json", jsonOutput).
		Str("backend", backend).
		Int("timeout", timeoutSecs).
		Msg("Starting text acquisition")

	fileInfo, err := validatePDFFile(pdfPath, log)
	if err != nil {
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

	log.Info().
		Str("method", result.Method).
		Int("page_count", result.PageCount).
		Dur("duration", result.ProcessingDuration).
		Int("text_length", len(result.Text)).
		Msg("Text acquired")

	var data []byte
	if jsonOutput {
		data, err = json.MarshalIndent(TextOutput{
			Text:               result.Text,
			Method:             result.Method,
			PageCount:          result.PageCount,
			Confidence:         result.Confidence,
			ProcessedAt:        result.ProcessedAt,
			ProcessingDuration: result.ProcessingDuration.String(),
			FileName:           filepath.Base(fileInfo.Name()),
			FileSize:           fileInfo.Size(),
		}, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal JSON output")
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		data = []byte(result.Text)
	}
	if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}

	return writeOutput(cmd, data, outputPath, log)
}

// validatePDFFile checks if the file exists, is readable, and appears to be a PDF
func validatePDFFile(pdfPath string, log zerolog.Logger) (os.FileInfo, error) {
	fileInfo, err := os.Stat(pdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("PDF file not found")
			return nil, fmt.Errorf("PDF file not found: %s", pdfPath)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", pdfPath).
				Msg("Permission denied accessing PDF file")
			return nil, fmt.Errorf("permission denied accessing PDF file: %s", pdfPath)
		}
		return nil, fmt.Errorf("error accessing PDF file: %w", err)
	}

	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", pdfPath).
			Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", pdfPath)
	}

	if !strings.HasSuffix(strings.ToLower(pdfPath), ".pdf") {
		log.Warn().
			Str("file", pdfPath).
			Msg("File does not have .pdf extension")
	}

	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", pdfPath).
			Msg("PDF file is empty")
		return nil, fmt.Errorf("PDF file is empty: %s", pdfPath)
	}

	if fileInfo.Size() > textsource.MaxFileSizeBytes {
		log.Error().
			Str("file", pdfPath).
			Int64("size", fileInfo.Size()).
			Int64("max_size", textsource.MaxFileSizeBytes).
			Msg("PDF file exceeds maximum size limit")
		return nil, fmt.Errorf("PDF file too large (%d bytes). Maximum size is %d bytes (20MB)",
			fileInfo.Size(), textsource.MaxFileSizeBytes)
	}

	return fileInfo, nil
}

// createContextWithTimeout creates a context with timeout and signal handling
func createContextWithTimeout(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling processing")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// createTextSource creates the text backend, backend overriding TEXT_BACKEND when set
func createTextSource(ctx context.Context, cfg *config.Config, backend string, log zerolog.Logger) (textsource.TextExtractor, error) {
	srcCfg := cfg.TextSourceConfig(backend)

	source, err := textsource.New(ctx, srcCfg)
	if err != nil {
		switch {
		case errors.Is(err, textsource.ErrUnsupportedBackend):
			log.Error().Err(err).Str("backend", srcCfg.Backend).Msg("Unknown text backend")
			return nil, fmt.Errorf("unknown text backend %q. Use one of: %s",
				srcCfg.Backend, strings.Join(textsource.Backends(), ", "))
		case errors.Is(err, textsource.ErrMissingCredentials):
			log.Error().Err(err).Msg("Google Cloud credentials not configured")
			return nil, fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n" +
				"1. Export GOOGLE_APPLICATION_CREDENTIALS with path to service account JSON:\n" +
				"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n" +
				"2. Export GOOGLE_CREDENTIALS with inline JSON:\n" +
				"   export GOOGLE_CREDENTIALS='{\"type\":\"service_account\",\"project_id\":\"your-project\",...}'\n\n" +
				"3. Use Application Default Credentials (if gcloud is configured):\n" +
				"   gcloud auth application-default login")
		case errors.Is(err, textsource.ErrInvalidConfiguration):
			log.Error().Err(err).Msg("Text backend configuration invalid")
			return nil, fmt.Errorf("invalid %s configuration. Please check your .env file:\n"+
				"  GOOGLE_CLOUD_PROJECT - your Google Cloud project ID\n"+
				"  GOOGLE_CLOUD_LOCATION - processing location (us, eu, etc.)\n"+
				"  DOCUMENT_AI_PROCESSOR_ID - your Document AI OCR processor ID\n"+
				"Original error: %w", srcCfg.Backend, err)
		}
		log.Error().Err(err).Msg("Failed to create text source")
		return nil, fmt.Errorf("failed to create text source: %w", err)
	}

	log.Debug().Str("backend", srcCfg.Backend).Msg("Text source created successfully")
	return source, nil
}

// handleExtractionError provides user-friendly error messages for text acquisition failures
func handleExtractionError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Text acquisition failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("processing timed out. Try increasing --timeout or processing a smaller file")
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("processing was canceled")
	case errors.Is(err, textsource.ErrFileTooLarge):
		return fmt.Errorf("PDF file is too large (maximum 20MB). Try compressing or splitting the file")
	case errors.Is(err, textsource.ErrTooManyPages):
		return fmt.Errorf("PDF has too many pages for OCR (maximum 5 pages). Try splitting into smaller files")
	case errors.Is(err, textsource.ErrInvalidPDF):
		return fmt.Errorf("invalid or corrupted PDF file. Please check the file integrity")
	case errors.Is(err, textsource.ErrEmptyDocument):
		return fmt.Errorf("no readable text found in the document. Scanned invoices need --text-backend vision or documentai")
	case errors.Is(err, textsource.ErrToolNotFound):
		return fmt.Errorf("pdftotext not found. Install poppler-utils or set PDFTOTEXT_PATH")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "auth:") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials:\n\n" +
			"1. Set GOOGLE_APPLICATION_CREDENTIALS to your service account JSON file path\n" +
			"2. Or set GOOGLE_CREDENTIALS with inline JSON credentials\n" +
			"3. Ensure the service account may call the Vision or Document AI API\n\n" +
			"Original error: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("permission denied. Please ensure your service account may call the Vision or Document AI API")
	case strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return fmt.Errorf("Google Cloud API quota exceeded. Check your project quotas in the Google Cloud Console")
	case errors.Is(err, textsource.ErrExtractionFailed):
		return fmt.Errorf("text extraction failed: %w", err)
	default:
		return fmt.Errorf("processing failed: %w", err)
	}
}

// writeOutput writes data to outputPath, or to the command's stdout when it is empty
func writeOutput(cmd *cobra.Command, data []byte, outputPath string, log zerolog.Logger) error {
	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}

		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(data)).
			Msg("Results written to file")
		return nil
	}

	if _, err := cmd.OutOrStdout().Write(data); err != nil {
		log.Error().Err(err).Msg("Failed to write to stdout")
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
