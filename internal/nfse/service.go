// Package nfse extracts structured records from the text of Brazilian municipal
// service invoices (notas fiscais de serviço).
//
// Extraction is best effort. Each field is found by an ordered chain of patterns,
// most specific first, evaluated against either the line-preserving text or its
// whitespace-collapsed rendition. Missing fields are nil; the retention tables fall
// back from table patterns to per-label search and finally to a positional scan
// near the table header. Totals, net amount and tax rate are derived when not
// printed. Only a failure to read the document is an error.
package nfse

import (
	"context"

	"github.com/rs/zerolog"

	"nfse/internal/logger"
	"nfse/internal/textsource"
	"nfse/pkg/models"
)

// RecordExtractor reads an invoice PDF and returns its record.
type RecordExtractor interface {
	// Extract returns the record for the document at path. It fails only with
	// *ExtractionError when the document cannot be read.
	Extract(ctx context.Context, path string) (*models.NotaFiscal, error)

	// ExtractWithTrace also reports how each field was obtained.
	ExtractWithTrace(ctx context.Context, path string) (*models.NotaFiscal, Trace, error)
}

// Extractor acquires document text from a text source and parses it.
type Extractor struct {
	source textsource.TextExtractor
	parser *Parser
	log    zerolog.Logger
}

// NewExtractor creates an extractor reading text from source.
func NewExtractor(source textsource.TextExtractor) *Extractor {
	return &Extractor{
		source: source,
		parser: NewParser(),
		log:    logger.WithComponent("nfse-extractor"),
	}
}

// Extract returns the record for the document at path.
func (e *Extractor) Extract(ctx context.Context, path string) (*models.NotaFiscal, error) {
	rec, _, err := e.ExtractWithTrace(ctx, path)
	return rec, err
}

// ExtractWithTrace returns the record for the document at path and its trace.
func (e *Extractor) ExtractWithTrace(ctx context.Context, path string) (*models.NotaFiscal, Trace, error) {
	const op = "Extract"

	if e.source == nil {
		return nil, nil, NewExtractionError(op, path, ErrNoTextSource)
	}

	result, err := e.source.ExtractText(ctx, path)
	if err != nil {
		e.log.Error().Err(err).Str("file", path).Msg("Text acquisition failed")
		return nil, nil, NewExtractionError(op, path, err)
	}

	rec, trace := e.parser.ParseWithTrace(result.Text)

	e.log.Info().
		Str("file", path).
		Str("method", result.Method).
		Int("pages", result.PageCount).
		Str("verification_code", rec.VerificationCode).
		Bool("synthetic_code", trace[FieldVerificationCode] == SourceSynthetic).
		Int("fields_found", len(trace)).
		Msg("Invoice extracted")

	return rec, trace, nil
}
