// Package textsource acquires the plain text of an invoice PDF.
//
// The field extractor treats text acquisition as an opaque capability. This package
// provides the backends that implement it:
//   - pdf: reads the embedded text layer with github.com/ledongthuc/pdf (default)
//   - pdftotext: runs poppler's pdftotext -layout, which keeps table columns aligned
//   - vision: Google Cloud Vision document text detection, for scanned invoices
//   - documentai: Google Document AI OCR processor, for scanned invoices
//
// Every backend validates the file before decoding it:
//   - Maximum file size: 20MB
//   - The file must start with a PDF header
//
// Cloud backends read credentials from GOOGLE_APPLICATION_CREDENTIALS (file path)
// or GOOGLE_CREDENTIALS (inline JSON), falling back to application default credentials.
package textsource

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Backend names accepted by New.
const (
	BackendPDF        = "pdf"
	BackendPdftotext  = "pdftotext"
	BackendVision     = "vision"
	BackendDocumentAI = "documentai"
)

// TextExtractor produces the full plain text of one PDF document.
type TextExtractor interface {
	// ExtractText reads the document at path and returns its text in reading order.
	// Unreadable or invalid documents fail with a *SourceError.
	ExtractText(ctx context.Context, path string) (*Result, error)
}

// Result contains acquired text with metadata.
type Result struct {
	// Text is the document text, pages separated by blank lines.
	Text string `json:"text"`

	// PageCount is the number of pages that were processed.
	PageCount int `json:"page_count"`

	// Method names the backend that produced the text.
	Method string `json:"method"`

	// Confidence is the average OCR confidence (0.0 to 1.0). Zero for text-layer backends.
	Confidence float32 `json:"confidence,omitempty"`

	ProcessedAt        time.Time     `json:"processed_at"`
	ProcessingDuration time.Duration `json:"processing_duration"`
}

// Config selects and configures a backend.
type Config struct {
	Backend string

	// PdftotextPath is the pdftotext binary (default "pdftotext").
	PdftotextPath string

	// Google Cloud settings for the vision and documentai backends.
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string

	// Timeout bounds a single cloud request. Zero means 60 seconds.
	Timeout time.Duration
}

// Backends lists the accepted backend names.
func Backends() []string {
	return []string{BackendPDF, BackendPdftotext, BackendVision, BackendDocumentAI}
}

// New creates the text extractor named by cfg.Backend. An empty backend selects pdf.
func New(ctx context.Context, cfg Config) (TextExtractor, error) {
	const op = "New"

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendPDF:
		return NewPDFTextExtractor(), nil
	case BackendPdftotext:
		return NewPdftotextExtractor(cfg.PdftotextPath, nil), nil
	case BackendVision:
		extractor, err := NewGoogleVisionExtractor(ctx)
		if err != nil {
			return nil, err
		}
		return extractor, nil
	case BackendDocumentAI:
		extractor, err := NewDocumentAIExtractor(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return extractor, nil
	default:
		return nil, NewSourceError(op, ErrUnsupportedBackend,
			fmt.Sprintf("%q (expected one of %s)", cfg.Backend, strings.Join(Backends(), ", ")))
	}
}

func newResult(method, text string, pages int, started time.Time) *Result {
	now := time.Now()
	return &Result{
		Text:               text,
		PageCount:          pages,
		Method:             method,
		ProcessedAt:        now,
		ProcessingDuration: now.Sub(started),
	}
}
