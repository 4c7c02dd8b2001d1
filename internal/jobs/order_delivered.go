package jobs

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/queue"
)

// OrderDeliveredPayload is the payload both delivery consumers receive. The
// trigger and metadata travel in the payload explicitly; consumers never read
// ambient request state.
type OrderDeliveredPayload struct {
	OrderID  uuid.UUID              `json:"order_id"`
	Trigger  string                 `json:"trigger"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// EnqueueOrderDelivered fans one delivery signal out to the two independent
// consumers: the commission ledger and the point dispenser. Each consumer is
// idempotent and retried on its own; no ordering holds between them.
func EnqueueOrderDelivered(q queue.QueueInterface, orderID uuid.UUID, trigger string, metadata map[string]interface{}) error {
	payload := OrderDeliveredPayload{
		OrderID:  orderID,
		Trigger:  trigger,
		Metadata: metadata,
	}
	for _, jobType := range []queue.JobType{queue.JobTypeCommissionCreate, queue.JobTypeReferralPoints} {
		if _, err := queue.EnqueueJob(q, jobType, payload, 5); err != nil {
			return fmt.Errorf("failed to enqueue %s for order %s: %w", jobType, orderID, err)
		}
	}
	return nil
}
