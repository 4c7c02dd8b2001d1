package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/partnerly/backend/internal/queue"
	"github.com/partnerly/backend/internal/services/backfill"
)

// BackfillPayload selects how a backfill batch runs.
type BackfillPayload struct {
	DryRun    bool `json:"dry_run"`
	ChunkSize int  `json:"chunk_size"`
}

// BackfillJob runs the adjustment processor out-of-band.
type BackfillJob struct {
	processor *backfill.Processor
}

// NewBackfillJob creates the backfill job handler.
func NewBackfillJob(processor *backfill.Processor) *BackfillJob {
	return &BackfillJob{processor: processor}
}

// RegisterBackfillJobHandlers registers the backfill handler with the queue.
func RegisterBackfillJobHandlers(q queue.QueueInterface, processor *backfill.Processor) {
	handler := NewBackfillJob(processor)
	q.RegisterHandler(queue.JobTypeBackfill, handler.Run)
}

// EnqueueBackfillJob enqueues one backfill batch. Backfill runs once per
// request; it is not retried automatically since a rerun is the recovery
// path anyway.
func EnqueueBackfillJob(q queue.QueueInterface, dryRun bool, chunkSize int) error {
	_, err := queue.EnqueueJob(q, queue.JobTypeBackfill, BackfillPayload{DryRun: dryRun, ChunkSize: chunkSize}, 0)
	return err
}

// Run executes one backfill batch.
func (j *BackfillJob) Run(ctx context.Context, job queue.Job) (interface{}, error) {
	var payload BackfillPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal backfill payload: %w", err)
	}
	return j.processor.Run(ctx, payload.DryRun, payload.ChunkSize)
}
