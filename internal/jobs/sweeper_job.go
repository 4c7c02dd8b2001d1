package jobs

import (
	"context"
	"time"

	"github.com/partnerly/backend/internal/queue"
	"github.com/partnerly/backend/internal/services/commission"
)

// EligibilitySweeperJob promotes calculated commissions to eligible once the
// holding window has elapsed.
type EligibilitySweeperJob struct {
	ledger *commission.Ledger
}

// NewEligibilitySweeperJob creates the sweeper.
func NewEligibilitySweeperJob(ledger *commission.Ledger) *EligibilitySweeperJob {
	return &EligibilitySweeperJob{ledger: ledger}
}

// RegisterEligibilitySweeperJobHandlers registers the sweeper with the queue.
func RegisterEligibilitySweeperJobHandlers(q queue.QueueInterface, ledger *commission.Ledger) {
	handler := NewEligibilitySweeperJob(ledger)
	q.RegisterHandler(queue.JobTypeEligibilitySweep, handler.Sweep)
}

// Sweep runs one promotion pass. The underlying update is conditional, so
// overlapping sweeps are harmless.
func (j *EligibilitySweeperJob) Sweep(ctx context.Context, job queue.Job) (interface{}, error) {
	return j.ledger.PromoteEligible(ctx, time.Now())
}
