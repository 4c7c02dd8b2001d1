package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/partnerly/backend/internal/queue"
	"github.com/partnerly/backend/internal/services/commission"
)

// CommissionJob is the delivery-signal consumer that creates commission rows.
type CommissionJob struct {
	ledger *commission.Ledger
}

// NewCommissionJob creates the commission consumer.
func NewCommissionJob(ledger *commission.Ledger) *CommissionJob {
	return &CommissionJob{ledger: ledger}
}

// RegisterCommissionJobHandlers registers the commission consumer with the queue.
func RegisterCommissionJobHandlers(q queue.QueueInterface, ledger *commission.Ledger) {
	handler := NewCommissionJob(ledger)
	q.RegisterHandler(queue.JobTypeCommissionCreate, handler.ProcessOrderDelivered)
}

// ProcessOrderDelivered handles one delivery signal. Persistence failures
// propagate so the queue retries the whole signal; the ledger's own
// idempotency guard makes the retry safe.
func (j *CommissionJob) ProcessOrderDelivered(ctx context.Context, job queue.Job) (interface{}, error) {
	var payload OrderDeliveredPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order delivered payload: %w", err)
	}

	result, err := j.ledger.CreateForDeliveredOrder(ctx, payload.OrderID, payload.Trigger, payload.Metadata)
	if err != nil {
		return nil, err
	}
	return result, nil
}
