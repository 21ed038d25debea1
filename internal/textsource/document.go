package textsource

import (
	"bytes"
	"fmt"
	"os"
)

const (
	// MaxFileSizeBytes is the largest document any backend accepts (20MB).
	MaxFileSizeBytes = 20 * 1024 * 1024

	// MaxPagesSync is the page limit for synchronous cloud OCR.
	MaxPagesSync = 5

	// headerSearchBytes is how far into the file the %PDF- marker may start.
	headerSearchBytes = 1024
)

var pdfMagic = []byte("%PDF-")

// ReadPDF loads the document at path after checking its size and header.
func ReadPDF(path string) ([]byte, error) {
	const op = "ReadPDF"

	info, err := os.Stat(path)
	if err != nil {
		return nil, WrapSourceError(op, err, path)
	}
	if !info.Mode().IsRegular() {
		return nil, NewSourceError(op, ErrInvalidPDF, fmt.Sprintf("not a regular file: %s", path))
	}
	if info.Size() > MaxFileSizeBytes {
		return nil, NewSourceError(op, ErrFileTooLarge, fmt.Sprintf("file size: %d bytes", info.Size()))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, WrapSourceError(op, err, path)
	}

	if err := CheckPDFHeader(data); err != nil {
		return nil, WrapSourceError(op, err, path)
	}

	return data, nil
}

// CheckPDFHeader reports ErrInvalidPDF unless data carries a %PDF- marker near its start.
func CheckPDFHeader(data []byte) error {
	head := data
	if len(head) > headerSearchBytes {
		head = head[:headerSearchBytes]
	}
	if !bytes.Contains(head, pdfMagic) {
		return fmt.Errorf("%w: missing PDF header", ErrInvalidPDF)
	}
	return nil
}
