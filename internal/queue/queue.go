package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// JobType defines the type of job
type JobType string

const (
	JobTypeCommissionCreate JobType = "commission_create"
	JobTypeReferralPoints   JobType = "referral_points"
	JobTypeEligibilitySweep JobType = "eligibility_sweep"
	JobTypeBackfill         JobType = "commission_backfill"
)

// JobStatus defines the status of a job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job represents a background job. Jobs are persisted so at-least-once
// delivery survives restarts; handlers must be idempotent.
type Job struct {
	ID         uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Type       JobType         `json:"type" gorm:"index"`
	Payload    json.RawMessage `json:"payload"`
	Status     JobStatus       `json:"status" gorm:"index"`
	RetryCount int             `json:"retry_count" gorm:"default:0"`
	MaxRetries int             `json:"max_retries" gorm:"default:3"`
	NextRetry  *time.Time      `json:"next_retry,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

// JobHandler is a function that processes a job
type JobHandler func(ctx context.Context, job Job) (interface{}, error)

// QueueInterface defines the queue operations consumers need
type QueueInterface interface {
	RegisterHandler(jobType JobType, handler JobHandler)
	Enqueue(job *Job) error
}

// Queue is a database-backed job queue with a worker pool
type Queue struct {
	db           *gorm.DB
	handlers     map[JobType]JobHandler
	handlersMu   sync.RWMutex
	retryHandler *RetryHandler
	quit         chan struct{}
	wg           sync.WaitGroup
	started      bool
}

// NewQueue creates a new queue
func NewQueue(db *gorm.DB) *Queue {
	q := &Queue{
		db:       db,
		handlers: make(map[JobType]JobHandler),
		quit:     make(chan struct{}),
	}
	q.retryHandler = NewRetryHandler(db)
	return q
}

// RegisterHandler registers a handler for a job type
func (q *Queue) RegisterHandler(jobType JobType, handler JobHandler) {
	q.handlersMu.Lock()
	defer q.handlersMu.Unlock()
	q.handlers[jobType] = handler
}

// Enqueue adds a job to the queue
func (q *Queue) Enqueue(job *Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	job.Status = JobStatusPending
	job.CreatedAt = time.Now()
	job.UpdatedAt = time.Now()

	if err := q.db.Create(job).Error; err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.Type, err)
	}
	return nil
}

// EnqueueJob marshals a payload and adds a job of the given type to the
// queue. maxRetries is per job type: fan-out consumers retry, one-shot
// batches do not.
func EnqueueJob(q QueueInterface, jobType JobType, payload interface{}, maxRetries int) (*Job, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", jobType, err)
	}

	job := &Job{
		Type:       jobType,
		Payload:    payloadBytes,
		MaxRetries: maxRetries,
	}
	if err := q.Enqueue(job); err != nil {
		return nil, err
	}
	return job, nil
}

// Start launches the worker pool
func (q *Queue) Start(numWorkers int) {
	if q.started {
		return
	}
	q.started = true

	log.Printf("Starting %d queue workers", numWorkers)
	for i := 0; i < numWorkers; i++ {
		q.wg.Add(1)
		go q.work(i)
	}
}

// Stop stops the worker pool and waits for in-flight jobs
func (q *Queue) Stop() {
	if !q.started {
		return
	}
	close(q.quit)
	q.wg.Wait()
	q.started = false
}

func (q *Queue) work(workerID int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.quit:
			log.Printf("Queue worker %d stopped", workerID)
			return
		default:
			job, err := q.claimNext()
			if err != nil {
				log.Printf("Worker %d: error claiming job: %v", workerID, err)
				time.Sleep(1 * time.Second)
				continue
			}
			if job == nil {
				time.Sleep(500 * time.Millisecond)
				continue
			}
			q.processJob(*job)
		}
	}
}

// claimNext picks the oldest runnable pending job and flips it to processing.
// The conditional update keyed by the current status is the claim: when two
// workers race, only one update succeeds.
func (q *Queue) claimNext() (*Job, error) {
	var job Job
	now := time.Now()
	err := q.db.
		Where("status = ? AND (next_retry IS NULL OR next_retry <= ?)", JobStatusPending, now).
		Order("created_at ASC").
		First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	result := q.db.Model(&Job{}).
		Where("id = ? AND status = ?", job.ID, JobStatusPending).
		Updates(map[string]interface{}{
			"status":     JobStatusProcessing,
			"updated_at": now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil // another worker won the claim
	}
	return &job, nil
}

func (q *Queue) processJob(job Job) {
	q.handlersMu.RLock()
	handler, ok := q.handlers[job.Type]
	q.handlersMu.RUnlock()
	if !ok {
		log.Printf("No handler registered for job type: %s", job.Type)
		q.updateJob(job.ID, map[string]interface{}{
			"status": JobStatusFailed,
			"error":  fmt.Sprintf("no handler for job type %s", job.Type),
		})
		return
	}

	result, err := handler(context.Background(), job)
	if err != nil {
		log.Printf("Job %s (%s) failed: %v", job.ID, job.Type, err)
		q.retryHandler.HandleFailedJob(job, err)
		return
	}

	updates := map[string]interface{}{
		"status": JobStatusCompleted,
		"error":  "",
	}
	if result != nil {
		if resultJSON, err := json.Marshal(result); err == nil {
			updates["result"] = resultJSON
		} else {
			log.Printf("Failed to marshal result of job %s: %v", job.ID, err)
		}
	}
	q.updateJob(job.ID, updates)
}

func (q *Queue) updateJob(jobID uuid.UUID, updates map[string]interface{}) {
	updates["updated_at"] = time.Now()
	if err := q.db.Model(&Job{}).Where("id = ?", jobID).Updates(updates).Error; err != nil {
		log.Printf("Failed to update job %s: %v", jobID, err)
	}
}
