package resumes

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"resume-analyzer/internal/extract"
	"resume-analyzer/internal/shared/server/middleware"
	"resume-analyzer/internal/shared/server/respond"
	"resume-analyzer/internal/shared/telemetry"
)

// Multipart framing on top of the largest accepted PDF.
const maxRequestBytes = extract.MaxFileSize + 1<<20

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches resume routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/resumes", h.upload)
	rg.GET("/resumes", h.list)
	rg.GET("/resumes/:id", h.get)
	rg.GET("/resumes/:id/progress", h.progress)
	rg.GET("/resumes/:id/url", h.fileURL)
	rg.GET("/resumes/:id/file", h.file)
	rg.POST("/resumes/:id/analyze", h.reanalyze)
	rg.DELETE("/resumes/:id", h.delete)
	rg.GET("/files", h.storedFiles)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusBadRequest, "validation_error", extract.ErrTooLarge.Error(), nil)
			return
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > extract.MaxFileSize {
		respond.Error(c, http.StatusBadRequest, "validation_error", extract.ErrTooLarge.Error(), nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}

	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	rec, err := h.Svc.Upload(ctx, userID, UploadInput{
		FileName: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Size:     fileHeader.Size,
		Data:     data,
	})
	if err != nil {
		writeError(c, err, "failed to upload resume")
		return
	}
	c.Set(middleware.ResumeIDKey, rec.ID)
	c.Set("statusTransition", "->"+string(rec.AnalysisStatus))
	respond.Accepted(c, rec.Summary())
}

func (h *Handler) list(c *gin.Context) {
	limit := queryInt(c, "limit", defaultListLimit)
	offset := queryInt(c, "offset", 0)

	recs, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c), limit, offset)
	if err != nil {
		writeError(c, err, "failed to list resumes")
		return
	}
	respond.OK(c, recs)
}

func (h *Handler) get(c *gin.Context) {
	id := resumeID(c)
	rec, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err, "failed to fetch resume")
		return
	}
	respond.OK(c, rec)
}

func (h *Handler) progress(c *gin.Context) {
	id := resumeID(c)
	snap, err := h.Svc.Progress(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err, "failed to fetch progress")
		return
	}
	respond.OK(c, snap)
}

func (h *Handler) fileURL(c *gin.Context) {
	id := resumeID(c)
	url, err := h.Svc.FileURL(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err, "failed to resolve file url")
		return
	}
	respond.OK(c, gin.H{"url": url})
}

func (h *Handler) file(c *gin.Context) {
	id := resumeID(c)
	stored, err := h.Svc.OpenFile(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err, "failed to open file")
		return
	}
	defer stored.Body.Close()

	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("inline; filename=%q", stored.Resume.OriginalName),
	}
	c.DataFromReader(http.StatusOK, stored.Resume.FileSize, stored.Resume.MimeType, stored.Body, extraHeaders)
}

func (h *Handler) reanalyze(c *gin.Context) {
	id := resumeID(c)
	ctx := WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
	rec, err := h.Svc.Reanalyze(ctx, middleware.UserIDFromContext(c), id)
	if err != nil {
		writeError(c, err, "failed to start analysis")
		return
	}
	c.Set("statusTransition", "->"+string(rec.AnalysisStatus))
	respond.Accepted(c, rec.Summary())
}

func (h *Handler) delete(c *gin.Context) {
	id := resumeID(c)
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		writeError(c, err, "failed to delete resume")
		return
	}
	respond.NoContent(c)
}

func (h *Handler) storedFiles(c *gin.Context) {
	files, err := h.Svc.StoredFiles(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, err, "failed to list files")
		return
	}
	respond.OK(c, files)
}

func resumeID(c *gin.Context) string {
	id := c.Param("id")
	c.Set(middleware.ResumeIDKey, id)
	return id
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, extract.ErrEncryptedDocument):
		respond.Error(c, http.StatusUnprocessableEntity, "encrypted_document", extract.ErrEncryptedDocument.Error(), nil)
	case errors.Is(err, extract.ErrInvalidDocument):
		respond.Error(c, http.StatusUnprocessableEntity, "invalid_document", extract.ErrInvalidDocument.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "resume not found", nil)
	case errors.Is(err, ErrConflict):
		respond.Error(c, http.StatusConflict, "conflict", "analysis is already in progress", nil)
	default:
		telemetry.Error("resume.request_failed", map[string]any{
			"request_id": middleware.RequestIDFromContext(c),
			"path":       c.FullPath(),
			"error":      err,
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", fallback, nil)
	}
}
