package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// QueueExports is the Redis list key for CSV export jobs.
	QueueExports = "worker:exports"
	// QueueDLQ is the dead-letter list for failed jobs. Jobs are never retried.
	QueueDLQ = "worker:dlq"
	// statusPrefix keys hold the status of each export job.
	statusPrefix = "export:status:"
	// StatusTTL bounds how long a job status is remembered.
	StatusTTL = 24 * time.Hour
	// PollInterval is how long Dequeue blocks before giving ctx a chance.
	PollInterval = 5 * time.Second
)

// JobType identifies the job kind.
type JobType string

const JobTypeExport JobType = "export_csv"

// Job status values.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ErrUnknownJob is returned for a job id with no recorded status.
var ErrUnknownJob = errors.New("unknown job")

// ExportPayload is the payload for export jobs.
type ExportPayload struct {
	RequestedBy string `json:"requested_by,omitempty"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
	Error     string          `json:"error,omitempty"`
}

// Queue enqueues and dequeues jobs via Redis.
type Queue struct {
	client *redis.Client
	logger *zap.Logger
}

// NewQueue creates a new Redis-backed job queue.
func NewQueue(client *redis.Client, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{client: client, logger: logger}
}

// EnqueueExport enqueues a CSV export job and marks it pending.
func (q *Queue) EnqueueExport(ctx context.Context, payload ExportPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      JobTypeExport,
		Payload:   body,
		CreatedAt: time.Now(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	if err := q.SetStatus(ctx, job.ID, StatusPending); err != nil {
		return "", err
	}
	if err := q.client.RPush(ctx, QueueExports, raw).Err(); err != nil {
		return "", fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued export job", zap.String("job_id", job.ID))
	return job.ID, nil
}

// Dequeue blocks up to PollInterval for a job. A nil job means none arrived.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BLPop(ctx, PollInterval, QueueExports).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Fail moves a job to the dead-letter list and marks it failed.
func (q *Queue) Fail(ctx context.Context, job *Job, cause error) error {
	job.Error = cause.Error()
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.RPush(ctx, QueueDLQ, raw).Err(); err != nil {
		q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
		return err
	}
	q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.String("error", job.Error))
	return q.SetStatus(ctx, job.ID, StatusFailed)
}

// SetStatus records a job's status.
func (q *Queue) SetStatus(ctx context.Context, jobID, status string) error {
	if err := q.client.Set(ctx, statusPrefix+jobID, status, StatusTTL).Err(); err != nil {
		return fmt.Errorf("set status: %w", err)
	}
	return nil
}

// Status returns a job's status or ErrUnknownJob.
func (q *Queue) Status(ctx context.Context, jobID string) (string, error) {
	s, err := q.client.Get(ctx, statusPrefix+jobID).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrUnknownJob
	}
	if err != nil {
		return "", fmt.Errorf("get status: %w", err)
	}
	return s, nil
}
