package extract

import "errors"

const (
	MimePDF     = "application/pdf"
	MaxFileSize = 10 * 1024 * 1024
)

var (
	ErrNotPDF   = errors.New("Please select a PDF file")
	ErrTooLarge = errors.New("File size must be less than 10MB")
)

// ValidatePDF checks the declared type and size of an upload before extraction.
func ValidatePDF(mimeType string, size int64) error {
	if mimeType != MimePDF {
		return ErrNotPDF
	}
	if size > MaxFileSize {
		return ErrTooLarge
	}
	return nil
}
