package textsource

import (
	"errors"
	"fmt"
)

// Common text acquisition errors
var (
	// ErrFileTooLarge is returned when the PDF exceeds MaxFileSizeBytes.
	ErrFileTooLarge = errors.New("PDF file size exceeds the maximum limit (20MB)")

	// ErrInvalidPDF is returned when the data is not a PDF document or cannot be decoded.
	ErrInvalidPDF = errors.New("invalid or corrupted PDF document")

	// ErrEmptyDocument is returned when the PDF contains no readable text.
	ErrEmptyDocument = errors.New("document contains no readable text")

	// ErrExtractionFailed is returned when a backend fails while producing text.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrToolNotFound is returned when an external command is not installed.
	ErrToolNotFound = errors.New("text extraction tool not found")

	// ErrMissingCredentials is returned when a cloud backend cannot find Google Cloud credentials.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrInvalidConfiguration is returned when a backend is missing required settings.
	ErrInvalidConfiguration = errors.New("invalid text source configuration")

	// ErrTooManyPages is returned when the document has too many pages for synchronous OCR.
	ErrTooManyPages = errors.New("PDF has too many pages (maximum 5 pages for synchronous processing)")

	// ErrUnsupportedBackend is returned by New for unknown backend names.
	ErrUnsupportedBackend = errors.New("unsupported text source backend")
)

// SourceError wraps errors with the operation that failed.
type SourceError struct {
	Op      string
	Err     error
	Details string
}

// Error implements the error interface.
func (e *SourceError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("textsource: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("textsource: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *SourceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewSourceError creates a new SourceError.
func NewSourceError(op string, err error, details string) *SourceError {
	return &SourceError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapSourceError wraps an error as a SourceError if it isn't already one.
func WrapSourceError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var sourceErr *SourceError
	if errors.As(err, &sourceErr) {
		return err
	}

	return NewSourceError(op, err, details)
}
