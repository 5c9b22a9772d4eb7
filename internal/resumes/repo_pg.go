package resumes

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"resume-analyzer/internal/analysis"
	"resume-analyzer/internal/extract"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `id, user_id, filename, original_name, upload_time, file_size, mime_type,
       file_reference, storage_provider, extracted_text, extraction_kind, pages_processed,
       pages_total, analysis_status, analysis_error, analysis, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) Create(ctx context.Context, rec Resume) error {
	const query = `
INSERT INTO resumes (
	id, user_id, filename, original_name, upload_time, file_size, mime_type,
	file_reference, storage_provider, extracted_text, extraction_kind,
	pages_processed, pages_total, analysis_status, analysis_error, analysis, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	payload, err := marshalAnalysis(rec.Analysis)
	if err != nil {
		return err
	}
	_, err = r.DB.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.FileName,
		rec.OriginalName,
		rec.UploadTime,
		rec.FileSize,
		rec.MimeType,
		rec.FileReference,
		rec.StorageProvider,
		rec.ExtractedText,
		string(rec.ExtractionKind),
		rec.PagesProcessed,
		rec.PagesTotal,
		string(rec.AnalysisStatus),
		nullString(rec.AnalysisError),
		payload,
		rec.UpdatedAt,
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, resumeID string) (Resume, error) {
	query := `SELECT ` + selectColumns + ` FROM resumes WHERE id = $1`
	rec, err := scanResume(r.DB.QueryRowContext(ctx, query, resumeID))
	if errors.Is(err, sql.ErrNoRows) {
		return Resume{}, ErrNotFound
	}
	return rec, err
}

// ListByUser lists records ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Resume, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + selectColumns + `
FROM resumes
WHERE user_id = $1
ORDER BY upload_time DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Resume, 0)
	for rows.Next() {
		rec, err := scanResume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Transition locks the row so concurrent workers cannot both claim it.
func (r *PGRepo) Transition(ctx context.Context, resumeID string, from []AnalysisStatus, to AnalysisStatus) (AnalysisStatus, error) {
	if len(from) == 0 {
		return "", fmt.Errorf("transition %s: no source states", resumeID)
	}
	args := []any{resumeID, string(to)}
	placeholders := make([]string, 0, len(from))
	for _, status := range from {
		args = append(args, string(status))
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)))
	}
	query := `
UPDATE resumes r
SET analysis_status = $2, analysis_error = NULL, updated_at = now()
FROM (SELECT id, analysis_status AS prev FROM resumes WHERE id = $1 FOR UPDATE) p
WHERE r.id = p.id AND p.prev IN (` + strings.Join(placeholders, ", ") + `)
RETURNING p.prev`

	var prev string
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&prev)
	if err == nil {
		return AnalysisStatus(prev), nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	var current string
	err = r.DB.QueryRowContext(ctx, `SELECT analysis_status FROM resumes WHERE id = $1`, resumeID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return AnalysisStatus(current), ErrConflict
}

// ReclaimStale relies on the row lock taken by UPDATE: a second caller
// re-checks updated_at after the first commits and matches nothing.
func (r *PGRepo) ReclaimStale(ctx context.Context, resumeID string, to AnalysisStatus, staleBefore time.Time) error {
	const query = `
UPDATE resumes
SET analysis_status = $2, analysis_error = NULL, updated_at = now()
WHERE id = $1 AND analysis_status = 'analyzing' AND updated_at < $3`
	res, err := r.DB.ExecContext(ctx, query, resumeID, string(to), staleBefore)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists bool
	err = r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM resumes WHERE id = $1)`, resumeID).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

func (r *PGRepo) SaveAnalysis(ctx context.Context, resumeID string, status AnalysisStatus, result *analysis.Result, errMsg string) error {
	const query = `
UPDATE resumes
SET analysis_status = $2, analysis = COALESCE($3, analysis), analysis_error = $4, updated_at = now()
WHERE id = $1`
	payload, err := marshalAnalysis(result)
	if err != nil {
		return err
	}
	res, err := r.DB.ExecContext(ctx, query, resumeID, string(status), payload, nullString(errMsg))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PGRepo) Delete(ctx context.Context, userID, resumeID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM resumes WHERE id = $1 AND user_id = $2`, resumeID, userID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanResume(row rowScanner) (Resume, error) {
	var (
		rec           Resume
		kind          string
		status        string
		analysisError sql.NullString
		payload       sql.NullString
	)
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.FileName,
		&rec.OriginalName,
		&rec.UploadTime,
		&rec.FileSize,
		&rec.MimeType,
		&rec.FileReference,
		&rec.StorageProvider,
		&rec.ExtractedText,
		&kind,
		&rec.PagesProcessed,
		&rec.PagesTotal,
		&status,
		&analysisError,
		&payload,
		&rec.UpdatedAt,
	)
	if err != nil {
		return Resume{}, err
	}
	rec.ExtractionKind = extract.Kind(kind)
	rec.AnalysisStatus = AnalysisStatus(status)
	rec.AnalysisError = analysisError.String
	if payload.Valid && payload.String != "" {
		var result analysis.Result
		if err := json.Unmarshal([]byte(payload.String), &result); err != nil {
			return Resume{}, fmt.Errorf("decode analysis for %s: %w", rec.ID, err)
		}
		rec.Analysis = &result
	}
	return rec, nil
}

func marshalAnalysis(result *analysis.Result) (any, error) {
	if result == nil {
		return nil, nil
	}
	b, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	return string(b), nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
