package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/partnerly/backend/internal/services/referral"
)

// ReferralHandler exposes click tracking, attribution and the anti-abuse
// read path.
type ReferralHandler struct {
	tracker     *referral.Tracker
	frontendURL string
}

// NewReferralHandler creates a referral handler
func NewReferralHandler(tracker *referral.Tracker, frontendURL string) *ReferralHandler {
	return &ReferralHandler{tracker: tracker, frontendURL: frontendURL}
}

// TrackClick records a referral link click and redirects to the storefront.
// Rejected clicks (unknown code, rate limited) still redirect; the visitor
// never sees an error page.
func (h *ReferralHandler) TrackClick(c *gin.Context) {
	code := c.Param("code")

	_, err := h.tracker.TrackClick(c.Request.Context(), code, referral.ClickContext{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Source:    c.Query("src"),
	})
	if err != nil {
		// Storage trouble should not break the visitor flow either
		c.Redirect(http.StatusFound, h.frontendURL)
		return
	}

	c.Redirect(http.StatusFound, h.frontendURL+"?ref="+code)
}

// Resolve returns the affiliate owning an active referral code. The signup
// flow calls this to stamp the new user's referred_by linkage.
func (h *ReferralHandler) Resolve(c *gin.Context) {
	code := c.Param("code")

	affiliateID, err := h.tracker.ResolveAttribution(c.Request.Context(), code)
	if err != nil {
		if errors.Is(err, referral.ErrCodeNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "referral code not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve referral code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"affiliate_id":            affiliateID,
		"attribution_window_days": referral.AttributionWindowDays,
	})
}

type recordAttributionRequest struct {
	Code      string    `json:"code" binding:"required"`
	NewUserID uuid.UUID `json:"new_user_id" binding:"required"`
}

// RecordAttribution stamps the referral linkage for a new signup. The first
// referrer wins; repeated calls are no-ops.
func (h *ReferralHandler) RecordAttribution(c *gin.Context) {
	var req recordAttributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	attribution, err := h.tracker.RecordAttribution(c.Request.Context(), req.Code, req.NewUserID, c.ClientIP())
	if err != nil {
		switch {
		case errors.Is(err, referral.ErrCodeNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "referral code not found"})
		case errors.Is(err, referral.ErrAlreadyAttributed):
			c.JSON(http.StatusOK, gin.H{"status": "already_attributed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record attribution"})
		}
		return
	}

	c.JSON(http.StatusCreated, attribution)
}

// MarkVerified flips the verified flag after email confirmation.
func (h *ReferralHandler) MarkVerified(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := h.tracker.MarkVerified(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to mark attribution verified"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "verified"})
}

// AbuseReport returns the 24h click/attribution activity and risk level for
// an IP hash. Admin only.
func (h *ReferralHandler) AbuseReport(c *gin.Context) {
	report, err := h.tracker.AssessRisk(c.Request.Context(), c.Param("ipHash"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to assess risk"})
		return
	}

	c.JSON(http.StatusOK, report)
}
