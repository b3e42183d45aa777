package worker

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/cliptag/backend/internal/export"
	"github.com/cliptag/backend/internal/metrics"
	"github.com/cliptag/backend/internal/sessions"
	"github.com/cliptag/backend/pkg/queue"
	"github.com/cliptag/backend/pkg/storage"
)

// dequeueBackoff is the pause after a failed dequeue (Redis unreachable).
const dequeueBackoff = 2 * time.Second

// Jobs is the queue side the processor needs.
type Jobs interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Fail(ctx context.Context, job *queue.Job, cause error) error
	SetStatus(ctx context.Context, jobID, status string) error
}

// Uploader stores finished exports.
type Uploader interface {
	ExportsBucket() string
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, contentLength int64) (string, error)
}

// ExportProcessor renders the event store to CSV and uploads it to S3.
type ExportProcessor struct {
	store    sessions.Store
	uploader Uploader
	jobs     Jobs
	logger   *zap.Logger
}

// NewExportProcessor creates an export job processor.
func NewExportProcessor(store sessions.Store, uploader Uploader, jobs Jobs, logger *zap.Logger) *ExportProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportProcessor{store: store, uploader: uploader, jobs: jobs, logger: logger}
}

// Process executes one export job.
func (p *ExportProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeExport {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	list, err := p.store.ListSessions(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	// Stream upload to S3 (no full buffer)
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(export.WriteCSV(pw, list))
	}()
	key := storage.ExportKey(job.ID)
	_, err = p.uploader.Upload(ctx, p.uploader.ExportsBucket(), key, export.ContentType, pr, 0)
	_ = pr.Close()
	if err != nil {
		return fmt.Errorf("s3 upload: %w", err)
	}

	if err := p.jobs.SetStatus(ctx, job.ID, queue.StatusCompleted); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	p.logger.Info("export completed", zap.String("job_id", job.ID), zap.String("s3_key", key), zap.Int("sessions", len(list)))
	return nil
}

// Run starts the worker loop: dequeue, process, dead-letter on error. Jobs are not retried.
func (p *ExportProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("export worker stopping")
			return
		default:
		}

		job, err := p.jobs.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(dequeueBackoff):
			}
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			metrics.ExportJobs.WithLabelValues("failed").Inc()
			if dlqErr := p.jobs.Fail(ctx, job, err); dlqErr != nil {
				p.logger.Error("dead-letter failed", zap.Error(dlqErr))
			}
			continue
		}
		metrics.ExportJobs.WithLabelValues("completed").Inc()
	}
}
