package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/services/commission"
)

// CommissionHandler exposes the admin review surface of the ledger.
type CommissionHandler struct {
	ledger *commission.Ledger
}

// NewCommissionHandler creates a commission handler
func NewCommissionHandler(ledger *commission.Ledger) *CommissionHandler {
	return &CommissionHandler{ledger: ledger}
}

type reviewRequest struct {
	Reason string `json:"reason"`
}

// Approve moves an eligible commission to approved.
func (h *CommissionHandler) Approve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid commission id"})
		return
	}

	if err := h.ledger.Approve(c.Request.Context(), id, time.Now()); err != nil {
		h.reviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "approved"})
}

// Reject moves an eligible commission to rejected.
func (h *CommissionHandler) Reject(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid commission id"})
		return
	}

	var req reviewRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.ledger.Reject(c.Request.Context(), id, req.Reason); err != nil {
		h.reviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

// Cancel voids a commission that has not been paid yet.
func (h *CommissionHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid commission id"})
		return
	}

	var req reviewRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.ledger.Cancel(c.Request.Context(), id, req.Reason); err != nil {
		h.reviewError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "canceled"})
}

// Sweep promotes calculated commissions past the holding window. The
// scheduler runs this hourly; the endpoint exists so an admin can force a
// run.
func (h *CommissionHandler) Sweep(c *gin.Context) {
	result, err := h.ledger.PromoteEligible(c.Request.Context(), time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "eligibility sweep failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *CommissionHandler) reviewError(c *gin.Context, err error) {
	if errors.Is(err, commission.ErrInvalidTransition) {
		c.JSON(http.StatusConflict, gin.H{"error": "commission is not in a reviewable state"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update commission"})
}
