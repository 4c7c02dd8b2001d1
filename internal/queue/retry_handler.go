package queue

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RetryConfig defines the backoff behaviour for failed jobs
type RetryConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// DefaultRetryConfig is the backoff used when none is supplied.
var DefaultRetryConfig = RetryConfig{
	InitialInterval: 30 * time.Second,
	MaxInterval:     6 * time.Hour,
	Multiplier:      2.0,
}

// RetryHandler reschedules failed jobs with exponential backoff until
// MaxRetries is exhausted.
type RetryHandler struct {
	db     *gorm.DB
	config RetryConfig
}

// NewRetryHandler creates a retry handler with the default backoff
func NewRetryHandler(db *gorm.DB) *RetryHandler {
	return &RetryHandler{
		db:     db,
		config: DefaultRetryConfig,
	}
}

// HandleFailedJob reschedules a failed job or marks it failed for good
func (h *RetryHandler) HandleFailedJob(job Job, jobErr error) {
	retryCount := job.RetryCount + 1

	if retryCount > job.MaxRetries {
		log.Printf("Job %s (%s) exceeded %d retries: %v", job.ID, job.Type, job.MaxRetries, jobErr)
		h.update(job.ID, map[string]interface{}{
			"status": JobStatusFailed,
			"error":  jobErr.Error(),
		})
		return
	}

	delay := h.BackoffDelay(retryCount)
	nextRetry := time.Now().Add(delay)
	log.Printf("Rescheduling job %s (%s), attempt %d/%d in %s", job.ID, job.Type, retryCount, job.MaxRetries, delay)

	h.update(job.ID, map[string]interface{}{
		"status":      JobStatusPending,
		"retry_count": retryCount,
		"next_retry":  nextRetry,
		"error":       jobErr.Error(),
	})
}

// BackoffDelay computes the exponential backoff delay for the n-th retry,
// capped at MaxInterval.
func (h *RetryHandler) BackoffDelay(retryCount int) time.Duration {
	delay := h.config.InitialInterval
	for i := 1; i < retryCount; i++ {
		delay = time.Duration(float64(delay) * h.config.Multiplier)
		if delay >= h.config.MaxInterval {
			return h.config.MaxInterval
		}
	}
	if delay > h.config.MaxInterval {
		return h.config.MaxInterval
	}
	return delay
}

func (h *RetryHandler) update(jobID uuid.UUID, updates map[string]interface{}) {
	updates["updated_at"] = time.Now()
	if err := h.db.Model(&Job{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		log.Printf("Failed to update job %s after failure: %v", jobID, err)
	}
}
