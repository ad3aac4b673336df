package handler

import (
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/waijian1/resume-parser-project/middleware"
	"github.com/waijian1/resume-parser-project/model"
	"github.com/waijian1/resume-parser-project/pipeline"
	"github.com/waijian1/resume-parser-project/pkg/logger"
	"github.com/waijian1/resume-parser-project/service"
)

type ResumeHandler struct {
	coordinator    *pipeline.Coordinator
	store          *service.RunStore
	maxUploadBytes int64
	previewChars   int
}

func NewResumeHandler(coordinator *pipeline.Coordinator, store *service.RunStore, maxUploadMB, previewChars int) *ResumeHandler {
	return &ResumeHandler{
		coordinator:    coordinator,
		store:          store,
		maxUploadBytes: int64(maxUploadMB) * 1024 * 1024,
		previewChars:   previewChars,
	}
}

// Upload accepts a PDF resume and runs the extraction pipeline
// synchronously. Validation failures are rejected before any
// collaborator is contacted.
func (h *ResumeHandler) Upload(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	file, header, err := c.Request.FormFile("resume")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No resume file provided"})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file selected"})
		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are supported"})
		return
	}

	if header.Size == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Empty file"})
		return
	}
	if header.Size > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "File exceeds upload size limit"})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = "application/pdf"
	}

	run := &model.Run{
		ID:        uuid.New().String(),
		Filename:  header.Filename,
		Tenant:    tenant,
		Status:    model.StatusProcessing,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	h.store.Save(run)

	ctx := logger.WithRunID(c.Request.Context(), run.ID)
	logger.Info(ctx, "resume accepted", "filename", header.Filename, "size", header.Size)

	result, err := h.coordinator.Run(ctx, pipeline.RunInput{
		Filename:    header.Filename,
		Content:     file,
		Size:        header.Size,
		ContentType: contentType,
	})
	if err != nil {
		h.store.UpdateStatus(run.ID, model.StatusFailed, err.Error())
		logger.Error(ctx, "extraction failed", "filename", header.Filename, "error", err)
		c.JSON(errorStatus(err), gin.H{"error": err.Error(), "run_id": run.ID})
		return
	}

	h.store.SetResult(run.ID, result)

	c.JSON(http.StatusOK, gin.H{
		"run_id":            run.ID,
		"filename":          header.Filename,
		"status":            model.StatusCompleted,
		"storage_path":      result.StoragePath,
		"job_id":            result.JobID,
		"matched_skills":    emptyIfNil(result.MatchedSkills),
		"entities":          result.Entities,
		"combined_keywords": emptyIfNil(result.CombinedKeywords),
		"text_preview":      preview(result.Text, h.previewChars),
	})
}

// errorStatus maps the pipeline error taxonomy to HTTP status codes.
// Collaborator faults surface as bad gateway; anything unanticipated
// is an internal error.
func errorStatus(err error) int {
	switch {
	case model.IsKind(err, model.ErrStorage),
		model.IsKind(err, model.ErrJobSubmission),
		model.IsKind(err, model.ErrJobFailed),
		model.IsKind(err, model.ErrResultFetch),
		model.IsKind(err, model.ErrMalformedResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func preview(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	return text[:maxChars] + "..."
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// List returns all runs for the current tenant, without result
// payloads.
func (h *ResumeHandler) List(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	runs := h.store.GetByTenant(tenant)

	result := make([]gin.H, len(runs))
	for i, run := range runs {
		result[i] = gin.H{
			"id":         run.ID,
			"filename":   run.Filename,
			"status":     run.Status,
			"created_at": run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"updated_at": run.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"runs": result})
}

// Get returns a single run including its extraction result.
func (h *ResumeHandler) Get(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	run := h.store.Get(id)
	if run == nil || run.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetStatus returns the processing status of a run.
func (h *ResumeHandler) GetStatus(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	run := h.store.Get(id)
	if run == nil || run.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        run.ID,
		"status":    run.Status,
		"error_msg": run.ErrorMsg,
	})
}

// Delete removes a run record.
func (h *ResumeHandler) Delete(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	run := h.store.Get(id)
	if run == nil || run.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Run not found"})
		return
	}

	h.store.Delete(id)

	c.JSON(http.StatusOK, gin.H{"message": "Run deleted"})
}
