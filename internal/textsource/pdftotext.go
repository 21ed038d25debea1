package textsource

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"nfse/internal/logger"
)

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args and returns its captured output.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	return out.Bytes(), errb.Bytes(), err
}

// PdftotextExtractor shells out to poppler's pdftotext in layout mode.
type PdftotextExtractor struct {
	binary string
	runner Runner
	log    zerolog.Logger
}

// NewPdftotextExtractor creates the pdftotext backend. An empty binary means "pdftotext"
// on PATH and a nil runner means ExecRunner.
func NewPdftotextExtractor(binary string, runner Runner) *PdftotextExtractor {
	if binary == "" {
		binary = "pdftotext"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &PdftotextExtractor{
		binary: binary,
		runner: runner,
		log:    logger.WithComponent("textsource-pdftotext"),
	}
}

// ExtractText runs pdftotext -layout on the document.
func (p *PdftotextExtractor) ExtractText(ctx context.Context, path string) (*Result, error) {
	const op = "PdftotextExtractor.ExtractText"
	started := time.Now()

	if _, err := ReadPDF(path); err != nil {
		return nil, err
	}

	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := p.runner.Run(ctx, p.binary, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		p.log.Error().
			Err(err).
			Str("file", path).
			Str("stderr", truncate(string(errb), 8<<10)).
			Msg("pdftotext failed")

		switch {
		case errors.Is(err, exec.ErrNotFound):
			return nil, NewSourceError(op, ErrToolNotFound, p.binary)
		case ctx.Err() != nil:
			return nil, NewSourceError(op, ctx.Err(), path)
		default:
			return nil, NewSourceError(op, ErrExtractionFailed, strings.TrimSpace(string(errb)))
		}
	}

	text := string(out)
	// pdftotext separates pages with a form feed
	pages := strings.Count(text, "\f")
	if pages == 0 {
		pages = 1
	}
	text = strings.ReplaceAll(text, "\f", "\n")

	if strings.TrimSpace(text) == "" {
		return nil, NewSourceError(op, ErrEmptyDocument, "pdftotext produced no text")
	}

	return newResult(BackendPdftotext, text, pages, started), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
