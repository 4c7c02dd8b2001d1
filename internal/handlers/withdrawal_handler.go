package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/services/commission"
	"github.com/partnerly/backend/internal/services/withdrawal"
)

// WithdrawalHandler exposes payout creation and the eligible-commission
// read path.
type WithdrawalHandler struct {
	matcher *withdrawal.Service
	ledger  *commission.Ledger
}

// NewWithdrawalHandler creates a withdrawal handler
func NewWithdrawalHandler(matcher *withdrawal.Service, ledger *commission.Ledger) *WithdrawalHandler {
	return &WithdrawalHandler{matcher: matcher, ledger: ledger}
}

// EligibleCommissions lists the commissions an affiliate could withdraw
// right now.
func (h *WithdrawalHandler) EligibleCommissions(c *gin.Context) {
	affiliateID, err := uuid.Parse(c.Param("affiliateId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid affiliate id"})
		return
	}

	rows, err := h.ledger.SelectEligibleCommissions(c.Request.Context(), affiliateID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list eligible commissions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"commissions": rows,
		"total":       withdrawal.SumAmounts(rows),
	})
}

type createWithdrawalRequest struct {
	AffiliateID uuid.UUID `json:"affiliate_id" binding:"required"`
}

// Create matches an affiliate's eligible commissions into a new withdrawal
// and stamps them paid.
func (h *WithdrawalHandler) Create(c *gin.Context) {
	var req createWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	result, err := h.matcher.CreateWithdrawal(c.Request.Context(), req.AffiliateID)
	if err != nil {
		switch {
		case errors.Is(err, withdrawal.ErrNoEligibleCommissions):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no eligible commissions for affiliate"})
		case errors.Is(err, withdrawal.ErrCommissionReserved):
			c.JSON(http.StatusConflict, gin.H{"error": "a commission was reserved by a concurrent withdrawal, retry"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create withdrawal"})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}
