package resumes

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"resume-analyzer/internal/analysis"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Resume
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Resume)}
}

func (r *MemoryRepo) Create(ctx context.Context, rec Resume) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[rec.ID] = rec
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, resumeID string) (Resume, error) {
	if err := ctx.Err(); err != nil {
		return Resume{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.data[resumeID]
	if !ok {
		return Resume{}, ErrNotFound
	}
	return rec, nil
}

// ListByUser returns records for a user, newest first, honoring limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}

	r.mu.RLock()
	out := make([]Resume, 0)
	for _, rec := range r.data {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UploadTime.After(out[j].UploadTime)
	})
	if offset >= len(out) {
		return []Resume{}, nil
	}
	end := len(out)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return out[offset:end], nil
}

func (r *MemoryRepo) Transition(ctx context.Context, resumeID string, from []AnalysisStatus, to AnalysisStatus) (AnalysisStatus, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[resumeID]
	if !ok {
		return "", ErrNotFound
	}
	if !slices.Contains(from, rec.AnalysisStatus) {
		return rec.AnalysisStatus, ErrConflict
	}
	prev := rec.AnalysisStatus
	rec.AnalysisStatus = to
	rec.AnalysisError = ""
	rec.UpdatedAt = time.Now().UTC()
	r.data[resumeID] = rec
	return prev, nil
}

func (r *MemoryRepo) ReclaimStale(ctx context.Context, resumeID string, to AnalysisStatus, staleBefore time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[resumeID]
	if !ok {
		return ErrNotFound
	}
	if rec.AnalysisStatus != StatusAnalyzing || !rec.UpdatedAt.Before(staleBefore) {
		return ErrConflict
	}
	rec.AnalysisStatus = to
	rec.AnalysisError = ""
	rec.UpdatedAt = time.Now().UTC()
	r.data[resumeID] = rec
	return nil
}

func (r *MemoryRepo) SaveAnalysis(ctx context.Context, resumeID string, status AnalysisStatus, result *analysis.Result, errMsg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[resumeID]
	if !ok {
		return ErrNotFound
	}
	rec.AnalysisStatus = status
	rec.AnalysisError = errMsg
	if result != nil {
		res := *result
		rec.Analysis = &res
	}
	rec.UpdatedAt = time.Now().UTC()
	r.data[resumeID] = rec
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, resumeID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[resumeID]
	if !ok || rec.UserID != userID {
		return ErrNotFound
	}
	delete(r.data, resumeID)
	return nil
}

var _ Repo = (*MemoryRepo)(nil)
