package resumes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-analyzer/internal/analysis"
	"resume-analyzer/internal/extract"
	"resume-analyzer/internal/resumes/progress"
	"resume-analyzer/internal/shared/storage/object"
	"resume-analyzer/internal/shared/telemetry"
	"resume-analyzer/internal/shared/util"
)

const (
	defaultListLimit = 20
	maxListLimit     = 50

	progressValidated = 10
	progressStored    = 40
	progressSaved     = 70
	progressAnalyzing = 80
	progressDone      = 100

	dispatchFailedMessage = "Failed to start analysis. Please try again."

	// DefaultAnalyzingLease bounds how long a run may hold a record in
	// analyzing before another run or the user may take it over.
	DefaultAnalyzingLease = 15 * time.Minute
)

// TextExtractor turns uploaded PDF bytes into text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (extract.Outcome, error)
}

// ResumeAnalyzer produces feedback for extracted resume text.
type ResumeAnalyzer interface {
	Analyze(ctx context.Context, resumeText string) (analysis.Result, error)
}

// Service runs the upload and analysis workflow.
type Service struct {
	Repo       Repo
	Store      object.ObjectStore
	Extractor  TextExtractor
	Analyzer   ResumeAnalyzer
	Tracker    *progress.Tracker
	Dispatcher Dispatcher
	Now        func() time.Time

	// AnalyzingLease overrides DefaultAnalyzingLease. It must exceed the
	// longest analysis a live run can take.
	AnalyzingLease time.Duration
}

// UploadInput is one uploaded file.
type UploadInput struct {
	FileName string
	MimeType string
	Size     int64
	Data     []byte
}

// StoredFile is the stored PDF opened for streaming. Callers close Body.
type StoredFile struct {
	Resume Resume
	Body   io.ReadCloser
}

// Upload validates and extracts the PDF, stores it, records it and starts
// analysis. Documents rejected by extraction are not persisted.
func (s *Service) Upload(ctx context.Context, userID string, in UploadInput) (Resume, error) {
	if strings.TrimSpace(userID) == "" {
		return Resume{}, &ValidationError{Err: errors.New("user id is required")}
	}
	if in.Size <= 0 {
		in.Size = int64(len(in.Data))
	}
	if err := extract.ValidatePDF(in.MimeType, in.Size); err != nil {
		return Resume{}, &ValidationError{Err: err}
	}
	name, err := util.SanitizeFileName(in.FileName)
	if err != nil {
		return Resume{}, &ValidationError{Err: err}
	}

	resumeID := uuid.NewString()
	s.record(ctx, resumeID, progressValidated, progress.StatusUploading)

	outcome, err := s.Extractor.Extract(ctx, in.Data)
	if err != nil {
		s.fail(ctx, resumeID, err.Error())
		return Resume{}, err
	}

	obj, err := s.Store.Save(ctx, userID, name, bytes.NewReader(in.Data))
	if err != nil {
		s.fail(ctx, resumeID, "Failed to store file.")
		return Resume{}, fmt.Errorf("store resume file: %w", err)
	}
	s.record(ctx, resumeID, progressStored, progress.StatusUploading)

	now := s.now()
	rec := Resume{
		ID:              resumeID,
		UserID:          userID,
		FileName:        path.Base(obj.Key),
		OriginalName:    name,
		UploadTime:      now,
		FileSize:        in.Size,
		MimeType:        extract.MimePDF,
		FileReference:   obj.Key,
		StorageProvider: s.Store.Provider(),
		ExtractedText:   outcome.Text(),
		ExtractionKind:  outcome.Kind,
		PagesProcessed:  outcome.PagesProcessed,
		PagesTotal:      outcome.PagesTotal,
		AnalysisStatus:  StatusPending,
		UpdatedAt:       now,
	}
	if err := s.Repo.Create(ctx, rec); err != nil {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), obj.Key); delErr != nil {
			telemetry.Error("resume.rollback_failed", map[string]any{
				"resume_id": resumeID,
				"key":       obj.Key,
				"error":     delErr,
			})
		}
		s.fail(ctx, resumeID, "Failed to save resume.")
		return Resume{}, fmt.Errorf("create resume record: %w", err)
	}
	s.record(ctx, resumeID, progressSaved, progress.StatusUploading)
	telemetry.Info("resume.uploaded", map[string]any{
		"request_id":      requestIDFromContext(ctx),
		"user_id":         userID,
		"resume_id":       resumeID,
		"size_bytes":      in.Size,
		"extraction_kind": string(outcome.Kind),
		"storage":         rec.StorageProvider,
	})

	if err := s.Dispatcher.Dispatch(ctx, resumeID); err != nil {
		telemetry.Error("analysis.dispatch_failed", map[string]any{"resume_id": resumeID, "error": err})
		if saveErr := s.Repo.SaveAnalysis(ctx, resumeID, StatusError, nil, dispatchFailedMessage); saveErr != nil {
			return Resume{}, saveErr
		}
		s.fail(ctx, resumeID, dispatchFailedMessage)
		rec.AnalysisStatus = StatusError
		rec.AnalysisError = dispatchFailedMessage
	}
	return rec, nil
}

// ProcessAnalysis analyzes a stored resume and records the outcome. A
// failure the user should see is stored on the record and not returned.
func (s *Service) ProcessAnalysis(ctx context.Context, resumeID string) error {
	rec, err := s.Repo.GetByID(ctx, resumeID)
	if err != nil {
		return err
	}
	prev, err := s.claim(ctx, rec, []AnalysisStatus{StatusPending, StatusError}, StatusAnalyzing)
	if err != nil {
		return err
	}
	if prev != StatusPending {
		s.restart(ctx, resumeID)
	}
	s.record(ctx, resumeID, progressAnalyzing, progress.StatusAnalyzing)
	s.logStatus(ctx, rec, StatusAnalyzing, string(prev)+"->analyzing", nil)

	started := s.now()
	result, err := s.Analyzer.Analyze(ctx, rec.ExtractedText)
	if err != nil {
		if ctx.Err() != nil {
			// Put the job back so a redelivery can claim it.
			bg := context.WithoutCancel(ctx)
			if saveErr := s.Repo.SaveAnalysis(bg, resumeID, StatusPending, nil, ""); saveErr != nil {
				return errors.Join(err, saveErr)
			}
			return err
		}
		msg := analysis.UserMessage(err)
		if saveErr := s.Repo.SaveAnalysis(ctx, resumeID, StatusError, nil, msg); saveErr != nil {
			return fmt.Errorf("save analysis failure: %w", saveErr)
		}
		s.fail(ctx, resumeID, msg)
		s.logStatus(ctx, rec, StatusError, "analyzing->error", map[string]any{
			"error":       err,
			"duration_ms": s.now().Sub(started).Milliseconds(),
		})
		return nil
	}

	if err := s.Repo.SaveAnalysis(ctx, resumeID, StatusCompleted, &result, ""); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	s.record(ctx, resumeID, progressDone, progress.StatusCompleted)
	s.logStatus(ctx, rec, StatusCompleted, "analyzing->completed", map[string]any{
		"source":        string(result.Source),
		"overall_score": result.OverallScore,
		"duration_ms":   s.now().Sub(started).Milliseconds(),
	})
	return nil
}

// Reanalyze re-runs analysis for a record that finished or failed, or whose
// analyzing run outlived its lease.
func (s *Service) Reanalyze(ctx context.Context, userID, resumeID string) (Resume, error) {
	rec, err := s.Get(ctx, userID, resumeID)
	if err != nil {
		return Resume{}, err
	}
	prev, err := s.claim(ctx, rec, []AnalysisStatus{StatusCompleted, StatusError}, StatusPending)
	if err != nil {
		return Resume{}, err
	}
	s.restart(ctx, resumeID)
	s.logStatus(ctx, rec, StatusPending, string(prev)+"->pending", nil)

	rec.AnalysisStatus = StatusPending
	rec.AnalysisError = ""
	if err := s.Dispatcher.Dispatch(ctx, resumeID); err != nil {
		telemetry.Error("analysis.dispatch_failed", map[string]any{"resume_id": resumeID, "error": err})
		if saveErr := s.Repo.SaveAnalysis(ctx, resumeID, StatusError, nil, dispatchFailedMessage); saveErr != nil {
			return Resume{}, saveErr
		}
		s.fail(ctx, resumeID, dispatchFailedMessage)
		rec.AnalysisStatus = StatusError
		rec.AnalysisError = dispatchFailedMessage
	}
	return rec, nil
}

// List returns the user's resumes, newest first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Resume, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Err: errors.New("user id is required")}
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	recs, err := s.Repo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]Resume, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.Summary())
	}
	return out, nil
}

// Get returns a resume owned by userID. Other users' records are reported
// as not found.
func (s *Service) Get(ctx context.Context, userID, resumeID string) (Resume, error) {
	if _, err := uuid.Parse(resumeID); err != nil {
		return Resume{}, ErrNotFound
	}
	rec, err := s.Repo.GetByID(ctx, resumeID)
	if err != nil {
		return Resume{}, err
	}
	if rec.UserID != userID {
		return Resume{}, ErrNotFound
	}
	return rec, nil
}

// Progress returns the latest snapshot, deriving one from the record when
// the tracker has none (expired, or recorded by another process) or when
// the record has moved past what the snapshot shows.
func (s *Service) Progress(ctx context.Context, userID, resumeID string) (progress.Progress, error) {
	rec, err := s.Get(ctx, userID, resumeID)
	if err != nil {
		return progress.Progress{}, err
	}
	if s.Tracker == nil {
		return progressFromRecord(rec), nil
	}
	snap, err := s.Tracker.Get(ctx, resumeID)
	if err == nil {
		return reconcileProgress(snap, rec), nil
	}
	if !errors.Is(err, progress.ErrNotFound) {
		telemetry.Warn("progress.lookup_failed", map[string]any{"resume_id": resumeID, "error": err})
	}
	return progressFromRecord(rec), nil
}

// Delete removes the stored file and then the record.
func (s *Service) Delete(ctx context.Context, userID, resumeID string) error {
	rec, err := s.Get(ctx, userID, resumeID)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, rec.FileReference); err != nil && !errors.Is(err, object.ErrNotFound) {
		return fmt.Errorf("delete resume file: %w", err)
	}
	if err := s.Repo.Delete(ctx, userID, resumeID); err != nil {
		return err
	}
	s.restart(ctx, resumeID)
	telemetry.Info("resume.deleted", map[string]any{"user_id": userID, "resume_id": resumeID})
	return nil
}

// FileURL returns a link to the stored file, or nil when the store has none.
func (s *Service) FileURL(ctx context.Context, userID, resumeID string) (*string, error) {
	rec, err := s.Get(ctx, userID, resumeID)
	if err != nil {
		return nil, err
	}
	url, err := s.Store.URL(ctx, rec.FileReference)
	if err != nil {
		return nil, fmt.Errorf("resume file url: %w", err)
	}
	if url == "" {
		return nil, nil
	}
	return &url, nil
}

// OpenFile opens the stored PDF for streaming.
func (s *Service) OpenFile(ctx context.Context, userID, resumeID string) (StoredFile, error) {
	rec, err := s.Get(ctx, userID, resumeID)
	if err != nil {
		return StoredFile{}, err
	}
	body, err := s.Store.Open(ctx, rec.FileReference)
	if errors.Is(err, object.ErrNotFound) {
		return StoredFile{}, ErrNotFound
	}
	if err != nil {
		return StoredFile{}, fmt.Errorf("open resume file: %w", err)
	}
	return StoredFile{Resume: rec, Body: body}, nil
}

// StoredFiles lists what the blob store holds for the user.
func (s *Service) StoredFiles(ctx context.Context, userID string) ([]object.StoredObject, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, &ValidationError{Err: errors.New("user id is required")}
	}
	files, err := s.Store.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list stored files: %w", err)
	}
	if files == nil {
		files = []object.StoredObject{}
	}
	return files, nil
}

// claim moves the record from one of `from` to `to`. A record stuck in
// analyzing past the lease is taken over; one within the lease yields
// ErrInProgress.
func (s *Service) claim(ctx context.Context, rec Resume, from []AnalysisStatus, to AnalysisStatus) (AnalysisStatus, error) {
	prev, err := s.Repo.Transition(ctx, rec.ID, from, to)
	if !errors.Is(err, ErrConflict) || prev != StatusAnalyzing {
		return prev, err
	}
	lease := s.lease()
	err = s.Repo.ReclaimStale(ctx, rec.ID, to, s.now().Add(-lease))
	if errors.Is(err, ErrConflict) {
		return StatusAnalyzing, ErrInProgress
	}
	if err != nil {
		return "", err
	}
	telemetry.Warn("analysis.lease_reclaimed", map[string]any{
		"request_id": requestIDFromContext(ctx),
		"resume_id":  rec.ID,
		"to":         string(to),
		"lease_ms":   lease.Milliseconds(),
	})
	return StatusAnalyzing, nil
}

func (s *Service) lease() time.Duration {
	if s.AnalyzingLease > 0 {
		return s.AnalyzingLease
	}
	return DefaultAnalyzingLease
}

func (s *Service) record(ctx context.Context, resumeID string, percent int, status progress.Status) {
	if s.Tracker == nil {
		return
	}
	if _, err := s.Tracker.Record(ctx, resumeID, percent, status, ""); err != nil {
		telemetry.Warn("progress.record_failed", map[string]any{"resume_id": resumeID, "error": err})
	}
}

func (s *Service) fail(ctx context.Context, resumeID, msg string) {
	if s.Tracker == nil {
		return
	}
	if _, err := s.Tracker.Fail(context.WithoutCancel(ctx), resumeID, msg); err != nil {
		telemetry.Warn("progress.record_failed", map[string]any{"resume_id": resumeID, "error": err})
	}
}

func (s *Service) restart(ctx context.Context, resumeID string) {
	if s.Tracker == nil {
		return
	}
	if err := s.Tracker.Restart(ctx, resumeID); err != nil {
		telemetry.Warn("progress.restart_failed", map[string]any{"resume_id": resumeID, "error": err})
	}
}

func (s *Service) logStatus(ctx context.Context, rec Resume, status AnalysisStatus, transition string, extra map[string]any) {
	fields := map[string]any{
		"request_id":        requestIDFromContext(ctx),
		"user_id":           rec.UserID,
		"resume_id":         rec.ID,
		"status":            string(status),
		"status_transition": transition,
	}
	for k, v := range extra {
		fields[k] = v
	}
	telemetry.Info("analysis.status", fields)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func progressFromRecord(rec Resume) progress.Progress {
	p := progress.Progress{UpdatedAt: rec.UpdatedAt}
	switch rec.AnalysisStatus {
	case StatusCompleted:
		p.Progress, p.Status = progressDone, progress.StatusCompleted
	case StatusAnalyzing:
		p.Progress, p.Status = progressAnalyzing, progress.StatusAnalyzing
	case StatusError:
		p.Progress, p.Status, p.Error = 0, progress.StatusError, rec.AnalysisError
	default:
		p.Progress, p.Status = progressSaved, progress.StatusUploading
	}
	return p
}

// reconcileProgress prefers the record whenever it is ahead of the snapshot.
// Snapshots written by another process's store go stale once that process
// finishes the run.
func reconcileProgress(snap progress.Progress, rec Resume) progress.Progress {
	derived := progressFromRecord(rec)
	switch rec.AnalysisStatus {
	case StatusCompleted, StatusError:
		if snap.Status != derived.Status {
			return derived
		}
	case StatusAnalyzing:
		if snap.Status == progress.StatusUploading {
			return derived
		}
	case StatusPending:
		if snap.Status == progress.StatusCompleted || snap.Status == progress.StatusError {
			return derived
		}
	}
	return snap
}
