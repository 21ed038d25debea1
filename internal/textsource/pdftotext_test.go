package textsource

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	stdout []byte
	stderr []byte
	err    error

	name string
	args []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	return f.stdout, f.stderr, f.err
}

func TestPdftotextExtractor_ExtractText(t *testing.T) {
	path := writeFile(t, "nota.pdf", []byte("%PDF-1.4\n"))

	runner := &fakeRunner{stdout: []byte("Código de verificação\n5880.7878.DA08\f  Página 2\f")}
	extractor := NewPdftotextExtractor("/usr/bin/pdftotext", runner)

	result, err := extractor.ExtractText(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/pdftotext", runner.name)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "-eol", "unix", path, "-"}, runner.args)
	assert.Equal(t, BackendPdftotext, result.Method)
	assert.Equal(t, 2, result.PageCount)
	assert.NotContains(t, result.Text, "\f")
	assert.Contains(t, result.Text, "5880.7878.DA08")
}

func TestPdftotextExtractor_Errors(t *testing.T) {
	path := writeFile(t, "nota.pdf", []byte("%PDF-1.4\n"))

	tests := []struct {
		name    string
		runner  *fakeRunner
		wantErr error
	}{
		{
			name:    "binary missing",
			runner:  &fakeRunner{err: fmt.Errorf("exec: %w", exec.ErrNotFound)},
			wantErr: ErrToolNotFound,
		},
		{
			name:    "command failed",
			runner:  &fakeRunner{stderr: []byte("Syntax Error: Couldn't read xref table"), err: errors.New("exit status 1")},
			wantErr: ErrExtractionFailed,
		},
		{
			name:    "no text",
			runner:  &fakeRunner{stdout: []byte("\f\n\f")},
			wantErr: ErrEmptyDocument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPdftotextExtractor("", tt.runner).ExtractText(context.Background(), path)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, "pdftotext", tt.runner.name)
		})
	}
}

func TestPdftotextExtractor_RejectsInvalidFileBeforeRunning(t *testing.T) {
	path := writeFile(t, "nota.pdf", []byte("not a pdf"))
	runner := &fakeRunner{}

	_, err := NewPdftotextExtractor("", runner).ExtractText(context.Background(), path)
	assert.ErrorIs(t, err, ErrInvalidPDF)
	assert.Empty(t, runner.name)
}
