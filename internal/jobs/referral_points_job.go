package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/partnerly/backend/internal/queue"
	"github.com/partnerly/backend/internal/services/referral"
)

// ReferralPointsJob is the delivery-signal consumer that awards referral
// points. It runs independently of the commission consumer: a failure here
// never rolls back the order transition or the commission rows, it only
// makes this job retry.
type ReferralPointsJob struct {
	dispenser *referral.Dispenser
}

// NewReferralPointsJob creates the point dispenser consumer.
func NewReferralPointsJob(dispenser *referral.Dispenser) *ReferralPointsJob {
	return &ReferralPointsJob{dispenser: dispenser}
}

// RegisterReferralPointsJobHandlers registers the dispenser consumer with the queue.
func RegisterReferralPointsJobHandlers(q queue.QueueInterface, dispenser *referral.Dispenser) {
	handler := NewReferralPointsJob(dispenser)
	q.RegisterHandler(queue.JobTypeReferralPoints, handler.ProcessOrderDelivered)
}

// ProcessOrderDelivered awards points for one delivered order of a referred
// buyer.
func (j *ReferralPointsJob) ProcessOrderDelivered(ctx context.Context, job queue.Job) (interface{}, error) {
	var payload OrderDeliveredPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order delivered payload: %w", err)
	}

	result, err := j.dispenser.HandleOrderDelivered(ctx, payload.OrderID, payload.Trigger, payload.Metadata)
	if err != nil {
		log.Printf("Point dispensation for order %s failed (trigger=%s): %v", payload.OrderID, payload.Trigger, err)
		return nil, err
	}
	return result, nil
}
