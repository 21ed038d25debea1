package textsource

import (
	"context"
	"fmt"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/rs/zerolog"

	"nfse/internal/logger"
)

// GoogleVisionExtractor runs Cloud Vision document text detection on scanned invoices.
type GoogleVisionExtractor struct {
	client *vision.ImageAnnotatorClient
	log    zerolog.Logger
}

// NewGoogleVisionExtractor creates the vision backend with credentials from environment.
func NewGoogleVisionExtractor(ctx context.Context) (*GoogleVisionExtractor, error) {
	const op = "NewGoogleVisionExtractor"

	opts := credentialOptions()
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		if len(opts) == 0 {
			return nil, NewSourceError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapSourceError(op, err, "failed to create Vision client")
	}

	return NewGoogleVisionExtractorWithClient(client), nil
}

// NewGoogleVisionExtractorWithClient creates the vision backend with an explicit client.
func NewGoogleVisionExtractorWithClient(client *vision.ImageAnnotatorClient) *GoogleVisionExtractor {
	return &GoogleVisionExtractor{
		client: client,
		log:    logger.WithComponent("textsource-vision"),
	}
}

// ExtractText sends the PDF inline to Vision and concatenates the page texts.
func (g *GoogleVisionExtractor) ExtractText(ctx context.Context, path string) (*Result, error) {
	const op = "GoogleVisionExtractor.ExtractText"
	started := time.Now()

	pdfBytes, err := ReadPDF(path)
	if err != nil {
		return nil, err
	}

	req := &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{
			{
				InputConfig: &visionpb.InputConfig{
					Content:  pdfBytes,
					MimeType: "application/pdf",
				},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := g.client.BatchAnnotateFiles(ctx, req)
	if err != nil {
		return nil, NewSourceError(op, ErrExtractionFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if len(resp.Responses) == 0 {
		return nil, NewSourceError(op, ErrExtractionFailed, "no response from Vision API")
	}

	fileResp := resp.Responses[0]
	if fileResp.Error != nil {
		return nil, NewSourceError(op, ErrExtractionFailed, fmt.Sprintf("Vision API error: %s", fileResp.Error.Message))
	}

	text, confidence, err := visionText(fileResp)
	if err != nil {
		return nil, WrapSourceError(op, err, path)
	}

	result := newResult(BackendVision, text, len(fileResp.Responses), started)
	result.Confidence = confidence

	g.log.Debug().
		Str("file", path).
		Int("pages", result.PageCount).
		Float32("confidence", confidence).
		Msg("Vision OCR completed")

	return result, nil
}

// visionText joins the page annotations and averages the page confidences.
func visionText(fileResp *visionpb.AnnotateFileResponse) (string, float32, error) {
	if len(fileResp.Responses) == 0 {
		return "", 0, ErrEmptyDocument
	}
	if len(fileResp.Responses) > MaxPagesSync {
		return "", 0, fmt.Errorf("%w: document has %d pages", ErrTooManyPages, len(fileResp.Responses))
	}

	var allText strings.Builder
	var confidenceSum float32
	var confidenceCount int

	for pageIdx, page := range fileResp.Responses {
		if page.Error != nil {
			return "", 0, fmt.Errorf("%w: page %d: %s", ErrExtractionFailed, pageIdx+1, page.Error.Message)
		}
		if page.FullTextAnnotation == nil {
			continue
		}

		if allText.Len() > 0 {
			allText.WriteString("\n\n")
		}
		allText.WriteString(page.FullTextAnnotation.Text)

		for _, p := range page.FullTextAnnotation.Pages {
			if p.Confidence > 0 {
				confidenceSum += p.Confidence
				confidenceCount++
			}
		}
	}

	text := allText.String()
	if strings.TrimSpace(text) == "" {
		return "", 0, ErrEmptyDocument
	}

	var avg float32
	if confidenceCount > 0 {
		avg = confidenceSum / float32(confidenceCount)
	}
	return text, avg, nil
}

// Close closes the underlying Vision client.
func (g *GoogleVisionExtractor) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
