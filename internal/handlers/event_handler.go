package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/jobs"
	"github.com/partnerly/backend/internal/queue"
)

// EventHandler receives delivery signals from the shop's order state
// machine. Delivery is at-least-once; the consumers behind the queue are
// idempotent, so a re-delivered webhook is harmless.
type EventHandler struct {
	queue queue.QueueInterface
}

// NewEventHandler creates an event handler
func NewEventHandler(q queue.QueueInterface) *EventHandler {
	return &EventHandler{queue: q}
}

type orderDeliveredRequest struct {
	OrderID  uuid.UUID              `json:"order_id" binding:"required"`
	Trigger  string                 `json:"trigger" binding:"required"`
	Metadata map[string]interface{} `json:"metadata"`
}

// OrderDelivered accepts one order-delivered signal and fans it out to the
// commission and referral-point consumers.
func (h *EventHandler) OrderDelivered(c *gin.Context) {
	var req orderDeliveredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	if err := jobs.EnqueueOrderDelivered(h.queue, req.OrderID, req.Trigger, req.Metadata); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue delivery signal"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "order_id": req.OrderID})
}
