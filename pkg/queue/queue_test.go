package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewQueue(client, nil), mr
}

func TestEnqueueDequeueExport(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	id, err := q.EnqueueExport(ctx, ExportPayload{RequestedBy: "admin"})
	require.NoError(t, err)

	status, err := q.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, status)

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, JobTypeExport, job.Type)
}

func TestFailMovesToDLQ(t *testing.T) {
	q, mr := newTestQueue(t)
	ctx := context.Background()

	id, err := q.EnqueueExport(ctx, ExportPayload{})
	require.NoError(t, err)
	job, err := q.Dequeue(ctx)
	require.NoError(t, err)

	require.NoError(t, q.Fail(ctx, job, errors.New("bucket missing")))

	status, err := q.Status(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, status)

	dlq, err := mr.List(QueueDLQ)
	require.NoError(t, err)
	require.Len(t, dlq, 1)
	assert.Contains(t, dlq[0], "bucket missing")

	pending, _ := mr.List(QueueExports)
	assert.Empty(t, pending, "failed jobs are not re-enqueued")
}

func TestStatusUnknown(t *testing.T) {
	q, _ := newTestQueue(t)
	_, err := q.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownJob)
}
