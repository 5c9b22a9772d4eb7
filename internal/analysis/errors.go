package analysis

import "errors"

// Error categories surfaced by Analyze. Match with errors.Is.
var (
	ErrConfiguration      = errors.New("analysis configuration error")
	ErrRateLimited        = errors.New("analysis rate limited")
	ErrServiceUnavailable = errors.New("analysis service unavailable")
	ErrAnalysisFailed     = errors.New("analysis failed")
)

// AnalysisError carries a user-facing message for a fatal model failure.
type AnalysisError struct {
	Kind    error
	Message string
	Err     error
}

func (e *AnalysisError) Error() string {
	return e.Message
}

func (e *AnalysisError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
