package textsource

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"nfse/internal/logger"
)

const (
	// Horizontal gap, as a fraction of the font size, that separates two words.
	wordGapRatio = 0.15

	// Fallback glyph width when a text run reports no width.
	avgGlyphWidthRatio = 0.5
)

// PDFTextExtractor reads the embedded text layer of a PDF.
type PDFTextExtractor struct {
	log zerolog.Logger
}

// NewPDFTextExtractor creates the default text-layer backend.
func NewPDFTextExtractor() *PDFTextExtractor {
	return &PDFTextExtractor{
		log: logger.WithComponent("textsource-pdf"),
	}
}

// ExtractText returns the document text, one output line per text row.
func (p *PDFTextExtractor) ExtractText(ctx context.Context, path string) (*Result, error) {
	const op = "PDFTextExtractor.ExtractText"
	started := time.Now()

	data, err := ReadPDF(path)
	if err != nil {
		return nil, err
	}

	text, pages, err := decodeTextLayer(ctx, data)
	if err != nil {
		return nil, WrapSourceError(op, err, path)
	}

	if strings.TrimSpace(text) == "" {
		return nil, NewSourceError(op, ErrEmptyDocument, "no text layer found, the PDF may be a scan")
	}

	p.log.Debug().
		Str("file", path).
		Int("pages", pages).
		Int("text_length", len(text)).
		Msg("Text layer decoded")

	return newResult(BackendPDF, text, pages, started), nil
}

// decodeTextLayer converts the PDF bytes to text. The decoder panics on some malformed
// files, so panics are reported as ErrInvalidPDF.
func decodeTextLayer(ctx context.Context, data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages = "", 0
			err = fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}

	var b strings.Builder
	pages = reader.NumPage()
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		rows, err := page.GetTextByRow()
		if err != nil {
			return "", 0, fmt.Errorf("%w: page %d: %v", ErrExtractionFailed, i, err)
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		for _, row := range rows {
			b.WriteString(joinRow(row.Content))
			b.WriteByte('\n')
		}
	}

	return b.String(), pages, nil
}

// joinRow concatenates the text runs of one row, inserting a space where the
// horizontal gap between runs is wider than a glyph spacing.
func joinRow(runs []pdf.Text) string {
	var b strings.Builder
	for i, run := range runs {
		if i > 0 && needsSpace(runs[i-1], run) {
			b.WriteByte(' ')
		}
		b.WriteString(run.S)
	}
	return b.String()
}

func needsSpace(prev, cur pdf.Text) bool {
	if strings.HasSuffix(prev.S, " ") || strings.HasPrefix(cur.S, " ") {
		return false
	}
	width := prev.W
	if width <= 0 {
		width = float64(utf8.RuneCountInString(prev.S)) * prev.FontSize * avgGlyphWidthRatio
	}
	gap := cur.X - (prev.X + width)
	return gap > cur.FontSize*wordGapRatio
}
