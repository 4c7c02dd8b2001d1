package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/partnerly/backend/internal/jobs"
	"github.com/partnerly/backend/internal/queue"
	"github.com/partnerly/backend/internal/services/backfill"
)

// BackfillHandler triggers variance backfill batches. Admin only.
type BackfillHandler struct {
	queue     queue.QueueInterface
	processor *backfill.Processor
}

// NewBackfillHandler creates a backfill handler
func NewBackfillHandler(q queue.QueueInterface, processor *backfill.Processor) *BackfillHandler {
	return &BackfillHandler{queue: q, processor: processor}
}

type runBackfillRequest struct {
	DryRun    bool `json:"dry_run"`
	ChunkSize int  `json:"chunk_size"`
	Async     bool `json:"async"`
}

// Run starts a backfill batch. Async requests enqueue the batch and return
// immediately; synchronous requests block and return the full summary.
func (h *BackfillHandler) Run(c *gin.Context) {
	var req runBackfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	if req.Async {
		if err := jobs.EnqueueBackfillJob(h.queue, req.DryRun, req.ChunkSize); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue backfill"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "enqueued", "dry_run": req.DryRun})
		return
	}

	summary, err := h.processor.Run(c.Request.Context(), req.DryRun, req.ChunkSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "backfill failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}
