package progress

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusUploading Status = "uploading"
	StatusAnalyzing Status = "analyzing"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// ErrNotFound is returned when no snapshot exists for a resume.
var ErrNotFound = errors.New("progress not found")

// Progress is the latest upload/analysis snapshot for one resume.
type Progress struct {
	Progress  int       `json:"progress"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UpdateFunc receives the current snapshot (ok is false when none exists)
// and returns the snapshot to store. Returning false leaves the store unchanged.
type UpdateFunc func(current Progress, ok bool) (Progress, bool)

// Store persists snapshots. Update must apply fn atomically per id.
type Store interface {
	Get(ctx context.Context, id string) (Progress, error)
	Update(ctx context.Context, id string, fn UpdateFunc) (Progress, error)
	Delete(ctx context.Context, id string) error
}

// Tracker records progress and keeps status moving forward only.
type Tracker struct {
	Store Store
	Now   func() time.Time
}

func NewTracker(store Store) *Tracker {
	return &Tracker{Store: store, Now: func() time.Time { return time.Now().UTC() }}
}

// Record stores a snapshot unless it would move the status backwards or
// lower the percentage within the same status. The stored snapshot is
// returned either way.
func (t *Tracker) Record(ctx context.Context, id string, percent int, status Status, errMsg string) (Progress, error) {
	next := Progress{
		Progress:  clampPercent(percent),
		Status:    status,
		Error:     errMsg,
		UpdatedAt: t.now(),
	}
	return t.Store.Update(ctx, id, func(current Progress, ok bool) (Progress, bool) {
		if ok && !advances(current, next) {
			return current, false
		}
		return next, true
	})
}

// Fail records the error state, which is reachable from any state.
func (t *Tracker) Fail(ctx context.Context, id, errMsg string) (Progress, error) {
	return t.Record(ctx, id, 0, StatusError, errMsg)
}

// Restart clears the snapshot so a new analysis run can start from scratch.
func (t *Tracker) Restart(ctx context.Context, id string) error {
	return t.Store.Delete(ctx, id)
}

func (t *Tracker) Get(ctx context.Context, id string) (Progress, error) {
	return t.Store.Get(ctx, id)
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now().UTC()
}

func advances(current, next Progress) bool {
	if next.Status == StatusError {
		return true
	}
	if current.Status == StatusError {
		return false
	}
	cr, nr := rank(current.Status), rank(next.Status)
	if nr != cr {
		return nr > cr
	}
	return next.Progress >= current.Progress
}

func rank(s Status) int {
	switch s {
	case StatusUploading:
		return 0
	case StatusAnalyzing:
		return 1
	case StatusCompleted:
		return 2
	default:
		return -1
	}
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
