package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CommissionType distinguishes original commissions from backfill adjustments.
type CommissionType string

const (
	CommissionTypeNormal     CommissionType = "normal"
	CommissionTypeAdjustment CommissionType = "adjustment"
)

// CommissionStatus is the lifecycle state of a commission.
type CommissionStatus string

const (
	CommissionStatusPendingCalc CommissionStatus = "pending_calc"
	CommissionStatusCalculated  CommissionStatus = "calculated"
	CommissionStatusEligible    CommissionStatus = "eligible"
	CommissionStatusApproved    CommissionStatus = "approved"
	CommissionStatusRejected    CommissionStatus = "rejected"
	CommissionStatusAdjusted    CommissionStatus = "adjusted"
	CommissionStatusCanceled    CommissionStatus = "canceled"
	CommissionStatusPaid        CommissionStatus = "paid"
)

// commissionTransitions is the allowed status transition table. paid and
// canceled are terminal.
var commissionTransitions = map[CommissionStatus][]CommissionStatus{
	CommissionStatusPendingCalc: {CommissionStatusCalculated},
	CommissionStatusCalculated:  {CommissionStatusEligible, CommissionStatusAdjusted, CommissionStatusCanceled},
	CommissionStatusEligible:    {CommissionStatusApproved, CommissionStatusRejected, CommissionStatusAdjusted, CommissionStatusCanceled},
	CommissionStatusApproved:    {CommissionStatusPaid, CommissionStatusAdjusted, CommissionStatusCanceled},
}

// CanTransition reports whether a commission may move from one status to
// another.
func CanTransition(from, to CommissionStatus) bool {
	for _, allowed := range commissionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Commission is a monetary entitlement computed from one order line.
// At most one normal commission exists per order line (unique partial index,
// see migrations); this is the idempotency key for delivery triggers.
type Commission struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	OrderID          uuid.UUID        `gorm:"type:uuid;index;not null" json:"order_id"`
	OrderLineID      uuid.UUID        `gorm:"type:uuid;index;not null" json:"order_line_id"`
	AffiliateID      uuid.UUID        `gorm:"type:uuid;index;not null" json:"affiliate_id"`
	Affiliate        Affiliate        `gorm:"foreignKey:AffiliateID" json:"-"`
	Type             CommissionType   `gorm:"type:varchar(20);not null;default:'normal'" json:"type"`
	BaseAmount       float64          `gorm:"type:decimal(20,2);not null;default:0" json:"base_amount"`
	Rate             *float64         `gorm:"type:decimal(20,2)" json:"rate"`
	Quantity         int              `gorm:"not null;default:1" json:"quantity"`
	Amount           float64          `gorm:"type:decimal(20,2);not null" json:"amount"`
	Currency         string           `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Status           CommissionStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	RuleCode         string           `gorm:"type:varchar(50);not null" json:"rule_code"`
	Notes            string           `gorm:"type:text" json:"notes"`
	EligibleAt       *time.Time       `json:"eligible_at"`
	ApprovedAt       *time.Time       `json:"approved_at"`
	PaidAt           *time.Time       `json:"paid_at"`
	PaidWithdrawalID *uuid.UUID       `gorm:"type:uuid;index" json:"paid_withdrawal_id"`
	MetaData         JSON             `gorm:"type:jsonb" json:"metadata"`
	CreatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt        gorm.DeletedAt   `gorm:"index" json:"-"`
}

// IsPaid reports whether the commission has been linked to a withdrawal.
// A paid commission is immutable.
func (c *Commission) IsPaid() bool {
	return c.PaidWithdrawalID != nil
}
