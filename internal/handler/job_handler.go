package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"crparser/internal/domain"
	"crparser/internal/middleware"
	"crparser/internal/service"
)

// multipartOverhead is the slack allowed on top of the file size for the
// multipart boundaries, part headers and the webhook_url field.
const multipartOverhead = 64 << 10

// JobHandler handles report submission and job lookup endpoints.
type JobHandler struct {
	jobService     service.JobService
	maxUploadBytes int64
}

// NewJobHandler creates a new JobHandler. Request bodies larger than
// maxUploadBytes plus multipart framing are cut off with 413; zero or less
// disables the limit.
func NewJobHandler(jobService service.JobService, maxUploadBytes int64) *JobHandler {
	return &JobHandler{jobService: jobService, maxUploadBytes: maxUploadBytes}
}

// SubmitResponse is returned when a report is accepted for processing.
type SubmitResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// Submit handles POST /cr_parse and POST /api/v1/jobs.
// The multipart form carries the report in "file" and an optional
// "webhook_url" overriding the default notification target.
func (h *JobHandler) Submit(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			HandleError(c, domain.ErrFileTooLarge)
			return
		}
		RespondError(c, http.StatusBadRequest, "MISSING_FILE", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	job, err := h.jobService.Submit(c.Request.Context(), service.SubmitInput{
		File:        file,
		Header:      header,
		CallbackURL: strings.TrimSpace(c.PostForm("webhook_url")),
		SubmittedBy: middleware.GetSubject(c),
	})
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondAccepted(c, SubmitResponse{RequestID: job.ID.String(), Status: string(job.Status)})
}

// Get handles GET /api/v1/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	job, err := h.jobService.Get(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, job)
}

// Tables handles GET /api/v1/jobs/:id/tables
func (h *JobHandler) Tables(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	tables, err := h.jobService.Tables(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, tables)
}

// Export handles GET /api/v1/jobs/:id/export?format=xlsx|csv
func (h *JobHandler) Export(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	format := domain.ExportFormat(strings.ToLower(c.DefaultQuery("format", string(domain.ExportFormatXLSX))))

	out, err := h.jobService.Export(c.Request.Context(), id, format)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+out.FileName+`"`)
	c.Data(http.StatusOK, out.ContentType, out.Data)
}

func parseJobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid job ID")
		return uuid.Nil, false
	}
	return id, true
}
