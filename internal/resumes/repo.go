package resumes

import (
	"context"
	"time"

	"resume-analyzer/internal/analysis"
)

// Repo persists resume records.
type Repo interface {
	Create(ctx context.Context, r Resume) error
	GetByID(ctx context.Context, resumeID string) (Resume, error)
	// ListByUser returns records newest first.
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Resume, error)
	// Transition moves the status to `to` when the current status is one of
	// `from`. It returns ErrConflict otherwise and the previous status on success.
	Transition(ctx context.Context, resumeID string, from []AnalysisStatus, to AnalysisStatus) (AnalysisStatus, error)
	// ReclaimStale moves a record that has been analyzing since before
	// staleBefore to `to`. It returns ErrConflict when the record is not
	// analyzing or its run is still within the lease.
	ReclaimStale(ctx context.Context, resumeID string, to AnalysisStatus, staleBefore time.Time) error
	SaveAnalysis(ctx context.Context, resumeID string, status AnalysisStatus, result *analysis.Result, errMsg string) error
	Delete(ctx context.Context, userID, resumeID string) error
}
