package resumes

import (
	"time"

	"resume-analyzer/internal/analysis"
	"resume-analyzer/internal/extract"
)

type AnalysisStatus string

const (
	StatusPending   AnalysisStatus = "pending"
	StatusAnalyzing AnalysisStatus = "analyzing"
	StatusCompleted AnalysisStatus = "completed"
	StatusError     AnalysisStatus = "error"
)

// Resume is an uploaded PDF with its extracted text and analysis state.
type Resume struct {
	ID              string           `json:"id"`
	UserID          string           `json:"userId"`
	FileName        string           `json:"filename"`
	OriginalName    string           `json:"originalName"`
	UploadTime      time.Time        `json:"uploadTime"`
	FileSize        int64            `json:"fileSize"`
	MimeType        string           `json:"mimeType"`
	FileReference   string           `json:"fileReference"`
	StorageProvider string           `json:"storageProvider"`
	ExtractedText   string           `json:"extractedText,omitempty"`
	ExtractionKind  extract.Kind     `json:"extractionKind"`
	PagesProcessed  int              `json:"pagesProcessed"`
	PagesTotal      int              `json:"pagesTotal"`
	AnalysisStatus  AnalysisStatus   `json:"analysisStatus"`
	AnalysisError   string           `json:"analysisError,omitempty"`
	Analysis        *analysis.Result `json:"analysis,omitempty"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Summary drops the extracted text for list responses.
func (r Resume) Summary() Resume {
	r.ExtractedText = ""
	return r
}
