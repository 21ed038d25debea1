package textsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := context.Background()

	extractor, err := New(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, &PDFTextExtractor{}, extractor)

	extractor, err = New(ctx, Config{Backend: " PDFTOTEXT ", PdftotextPath: "/opt/poppler/bin/pdftotext"})
	require.NoError(t, err)
	require.IsType(t, &PdftotextExtractor{}, extractor)
	assert.Equal(t, "/opt/poppler/bin/pdftotext", extractor.(*PdftotextExtractor).binary)

	_, err = New(ctx, Config{Backend: "tesseract"})
	assert.ErrorIs(t, err, ErrUnsupportedBackend)
	assert.Contains(t, err.Error(), "tesseract")
}

func TestNew_DocumentAIRequiresProject(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: BackendDocumentAI, ProcessorID: "abc123"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	_, err = New(context.Background(), Config{Backend: BackendDocumentAI, ProjectID: "acme"})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestSourceError(t *testing.T) {
	err := NewSourceError("ReadPDF", ErrInvalidPDF, "missing PDF header")
	assert.Equal(t, "textsource: ReadPDF failed: missing PDF header: invalid or corrupted PDF document", err.Error())
	assert.ErrorIs(t, err, ErrInvalidPDF)

	wrapped := WrapSourceError("ExtractText", err, "ignored")
	assert.Same(t, err, wrapped)
	assert.Nil(t, WrapSourceError("ExtractText", nil, ""))
}
