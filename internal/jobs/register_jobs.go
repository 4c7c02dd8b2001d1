package jobs

import (
	"log"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/partnerly/backend/internal/queue"
	"github.com/partnerly/backend/internal/services/backfill"
	"github.com/partnerly/backend/internal/services/commission"
	"github.com/partnerly/backend/internal/services/referral"
)

// RegisterAllJobHandlers registers all job handlers with the queue
func RegisterAllJobHandlers(
	q queue.QueueInterface,
	ledger *commission.Ledger,
	dispenser *referral.Dispenser,
	processor *backfill.Processor,
) {
	RegisterCommissionJobHandlers(q, ledger)
	RegisterReferralPointsJobHandlers(q, dispenser)
	RegisterEligibilitySweeperJobHandlers(q, ledger)
	RegisterBackfillJobHandlers(q, processor)
}

// ScheduleRecurringJobs starts the scheduler that enqueues the hourly
// eligibility sweep. The returned scheduler keeps running until stopped.
func ScheduleRecurringJobs(q queue.QueueInterface) (*gocron.Scheduler, error) {
	scheduler := gocron.NewScheduler(time.UTC)

	_, err := scheduler.Every(1).Hour().Do(func() {
		if _, err := queue.EnqueueJob(q, queue.JobTypeEligibilitySweep, struct{}{}, 1); err != nil {
			log.Printf("Failed to enqueue eligibility sweep: %v", err)
		}
	})
	if err != nil {
		return nil, err
	}

	scheduler.StartAsync()
	return scheduler, nil
}
