package textsource

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"nfse/internal/logger"
)

const defaultCloudTimeout = 60 * time.Second

// DocumentAIExtractor reads invoice text with a Document AI OCR processor.
type DocumentAIExtractor struct {
	client *documentai.DocumentProcessorClient
	config Config
	log    zerolog.Logger
}

// NewDocumentAIExtractor creates the documentai backend. ProjectID and ProcessorID are required.
func NewDocumentAIExtractor(ctx context.Context, cfg Config) (*DocumentAIExtractor, error) {
	const op = "NewDocumentAIExtractor"

	if cfg.ProjectID == "" {
		return nil, NewSourceError(op, ErrInvalidConfiguration, "GOOGLE_CLOUD_PROJECT is required")
	}
	if cfg.ProcessorID == "" {
		return nil, NewSourceError(op, ErrInvalidConfiguration, "DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if cfg.Location == "" {
		cfg.Location = "us"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultCloudTimeout
	}

	clientOptions := credentialOptions()
	explicitCredentials := len(clientOptions) > 0
	if cfg.Location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if !explicitCredentials {
			return nil, NewSourceError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapSourceError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", cfg.Location))
	}

	return NewDocumentAIExtractorWithClient(cfg, client), nil
}

// NewDocumentAIExtractorWithClient creates the documentai backend with an explicit client.
func NewDocumentAIExtractorWithClient(cfg Config, client *documentai.DocumentProcessorClient) *DocumentAIExtractor {
	return &DocumentAIExtractor{
		client: client,
		config: cfg,
		log:    logger.WithComponent("textsource-documentai"),
	}
}

// ExtractText processes the PDF inline and returns the document text.
func (d *DocumentAIExtractor) ExtractText(ctx context.Context, path string) (*Result, error) {
	const op = "DocumentAIExtractor.ExtractText"
	started := time.Now()

	pdfBytes, err := ReadPDF(path)
	if err != nil {
		return nil, err
	}

	processCtx, cancel := context.WithTimeout(ctx, d.config.Timeout)
	defer cancel()

	req := &documentaipb.ProcessRequest{
		Name: d.processorName(),
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  pdfBytes,
				MimeType: "application/pdf",
			},
		},
	}

	resp, err := d.client.ProcessDocument(processCtx, req)
	if err != nil {
		return nil, d.handleProcessingError(op, err)
	}
	if resp.Document == nil {
		return nil, NewSourceError(op, ErrExtractionFailed, "no document in response")
	}

	doc := resp.Document
	if strings.TrimSpace(doc.Text) == "" {
		return nil, NewSourceError(op, ErrEmptyDocument, path)
	}

	result := newResult(BackendDocumentAI, doc.Text, len(doc.Pages), started)
	result.Confidence = pageConfidence(doc.Pages)

	d.log.Debug().
		Str("file", path).
		Str("processor", d.config.ProcessorID).
		Int("pages", result.PageCount).
		Msg("Document AI OCR completed")

	return result, nil
}

func pageConfidence(pages []*documentaipb.Document_Page) float32 {
	var sum float32
	var n int
	for _, page := range pages {
		if page.Layout != nil && page.Layout.Confidence > 0 {
			sum += page.Layout.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float32(n)
}

// processorName builds the full processor resource name.
func (d *DocumentAIExtractor) processorName() string {
	name := fmt.Sprintf("projects/%s/locations/%s/processors/%s",
		d.config.ProjectID, d.config.Location, d.config.ProcessorID)
	if d.config.ProcessorVersion != "" {
		name += "/processorVersions/" + d.config.ProcessorVersion
	}
	return name
}

// handleProcessingError maps Document AI status strings to source errors.
func (d *DocumentAIExtractor) handleProcessingError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return NewSourceError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "NOT_FOUND"):
		return NewSourceError(op, ErrInvalidConfiguration, fmt.Sprintf("processor not found: %s", d.config.ProcessorID))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return NewSourceError(op, ErrInvalidPDF, "document format not supported or corrupted")
	case strings.Contains(errStr, "DeadlineExceeded") || strings.Contains(errStr, "context deadline exceeded"):
		return NewSourceError(op, context.DeadlineExceeded, "processing timeout")
	case strings.Contains(errStr, "Canceled") || strings.Contains(errStr, "context canceled"):
		return NewSourceError(op, context.Canceled, "processing was canceled")
	default:
		return NewSourceError(op, ErrExtractionFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// Close closes the underlying Document AI client.
func (d *DocumentAIExtractor) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}
