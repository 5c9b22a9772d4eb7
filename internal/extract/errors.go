package extract

import (
	"errors"
	"strings"
)

var (
	// ErrLoaderUnavailable reports that the PDF backend itself could not run.
	ErrLoaderUnavailable = errors.New("pdf loader unavailable")

	ErrInvalidDocument   = errors.New("The uploaded file appears to be corrupted or is not a valid PDF document.")
	ErrEncryptedDocument = errors.New("This PDF is password protected or encrypted. Please provide an unprotected PDF file.")
)

// DocumentLoadError is returned when both the full and the bare load failed.
type DocumentLoadError struct {
	Err error
}

func (e *DocumentLoadError) Error() string {
	return "Failed to load PDF document: " + e.Err.Error()
}

func (e *DocumentLoadError) Unwrap() error {
	return e.Err
}

func isLoaderFailure(err error) bool {
	if errors.Is(err, ErrLoaderUnavailable) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "worker") || strings.Contains(msg, "Worker")
}

func isInvalidDocument(msg string) bool {
	for _, marker := range []string{"Invalid PDF", "corrupted", "malformed", "not a PDF"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func isEncryptedDocument(msg string) bool {
	return strings.Contains(msg, "password") || strings.Contains(msg, "encrypted")
}
