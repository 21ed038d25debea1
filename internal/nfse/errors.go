package nfse

import (
	"errors"
	"fmt"
)

// ErrNoTextSource is returned when an Extractor has no text source.
var ErrNoTextSource = errors.New("no text source configured")

// ExtractionError reports that a document could not be read. Field-level misses are
// never errors; only text acquisition failures surface here.
type ExtractionError struct {
	// Op is the operation that failed.
	Op string

	// Path is the document that was being read.
	Path string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("nfse: %s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *ExtractionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewExtractionError creates a new ExtractionError.
func NewExtractionError(op, path string, err error) *ExtractionError {
	return &ExtractionError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}
