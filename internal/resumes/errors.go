package resumes

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("resume not found")
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict means the record is not in a state that allows the operation.
	ErrConflict = errors.New("resume state conflict")

	// ErrInProgress is the ErrConflict returned while another run still holds
	// the record in analyzing within its lease. A retry may succeed later.
	ErrInProgress = fmt.Errorf("%w: analysis in progress", ErrConflict)
)

// ValidationError carries a user-facing reason for rejected input.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrInvalidInput, e.Err}
}
