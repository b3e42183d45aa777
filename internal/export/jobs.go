package export

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cliptag/backend/internal/metrics"
	"github.com/cliptag/backend/internal/middleware"
	"github.com/cliptag/backend/pkg/queue"
	"github.com/cliptag/backend/pkg/response"
	"github.com/cliptag/backend/pkg/storage"
)

// JobQueue enqueues export jobs and reports their status.
type JobQueue interface {
	EnqueueExport(ctx context.Context, payload queue.ExportPayload) (string, error)
	Status(ctx context.Context, jobID string) (string, error)
}

// Presigner issues download links for finished exports.
type Presigner interface {
	ExportsBucket() string
	PresignExpire() time.Duration
	GeneratePresignedDownloadURL(ctx context.Context, bucket, key string, expires time.Duration) (string, error)
}

// JobStatus is the body of GET /api/export/jobs/:id.
type JobStatus struct {
	JobID       string `json:"job_id"`
	Status      string `json:"status"`
	DownloadURL string `json:"download_url,omitempty"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

// JobsHandler serves asynchronous exports. Either dependency may be nil, in
// which case every route answers 503.
type JobsHandler struct {
	queue     JobQueue
	presigner Presigner
	logger    *zap.Logger
}

// NewJobsHandler creates the asynchronous export handler.
func NewJobsHandler(q JobQueue, p Presigner, logger *zap.Logger) *JobsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobsHandler{queue: q, presigner: p, logger: logger}
}

func (h *JobsHandler) configured() bool {
	return h.queue != nil && h.presigner != nil && h.presigner.ExportsBucket() != ""
}

// Enqueue handles POST /api/export/jobs.
func (h *JobsHandler) Enqueue(c *gin.Context) {
	if !h.configured() {
		response.ServiceUnavailable(c, "Async export is not configured")
		return
	}
	payload := queue.ExportPayload{}
	if role, ok := c.Get(middleware.ContextRole); ok {
		payload.RequestedBy, _ = role.(string)
	}
	id, err := h.queue.EnqueueExport(c.Request.Context(), payload)
	if err != nil {
		h.logger.Error("enqueue export failed", zap.Error(err))
		response.Internal(c, "Failed to export CSV")
		return
	}
	metrics.ExportJobs.WithLabelValues("enqueued").Inc()
	response.Accepted(c, gin.H{"job_id": id})
}

// Status handles GET /api/export/jobs/:id.
func (h *JobsHandler) Status(c *gin.Context) {
	if !h.configured() {
		response.ServiceUnavailable(c, "Async export is not configured")
		return
	}
	jobID := c.Param("id")
	if _, err := uuid.Parse(jobID); err != nil {
		response.NotFound(c, "Export job not found")
		return
	}
	ctx := c.Request.Context()
	status, err := h.queue.Status(ctx, jobID)
	if errors.Is(err, queue.ErrUnknownJob) {
		response.NotFound(c, "Export job not found")
		return
	}
	if err != nil {
		h.logger.Error("export status failed", zap.Error(err), zap.String("job_id", jobID))
		response.Internal(c, "Failed to export CSV")
		return
	}
	out := JobStatus{JobID: jobID, Status: status}
	if status == queue.StatusCompleted {
		expires := h.presigner.PresignExpire()
		url, err := h.presigner.GeneratePresignedDownloadURL(ctx, h.presigner.ExportsBucket(), storage.ExportKey(jobID), expires)
		if err != nil {
			h.logger.Error("presign export failed", zap.Error(err), zap.String("job_id", jobID))
			response.Internal(c, "Failed to export CSV")
			return
		}
		out.DownloadURL = url
		out.ExpiresIn = int(expires.Seconds())
	}
	response.OK(c, out)
}
