package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureQueue struct {
	jobs []*Job
	err  error
}

func (c *captureQueue) RegisterHandler(jobType JobType, handler JobHandler) {}

func (c *captureQueue) Enqueue(job *Job) error {
	if c.err != nil {
		return c.err
	}
	c.jobs = append(c.jobs, job)
	return nil
}

func TestEnqueueJobMarshalsPayload(t *testing.T) {
	q := &captureQueue{}
	payload := map[string]interface{}{"order_id": "o-123", "trigger": "webhook"}

	job, err := EnqueueJob(q, JobTypeCommissionCreate, payload, 5)

	require.NoError(t, err)
	require.Len(t, q.jobs, 1)
	assert.Same(t, job, q.jobs[0])
	assert.Equal(t, JobTypeCommissionCreate, job.Type)
	assert.Equal(t, 5, job.MaxRetries)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(job.Payload, &decoded))
	assert.Equal(t, "o-123", decoded["order_id"])
}

func TestEnqueueJobUnmarshalablePayload(t *testing.T) {
	q := &captureQueue{}

	job, err := EnqueueJob(q, JobTypeBackfill, func() {}, 0)

	assert.Error(t, err)
	assert.Nil(t, job)
	assert.Empty(t, q.jobs)
}

func TestEnqueueJobPropagatesQueueError(t *testing.T) {
	q := &captureQueue{err: assert.AnError}

	job, err := EnqueueJob(q, JobTypeEligibilitySweep, struct{}{}, 1)

	assert.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, job)
}
