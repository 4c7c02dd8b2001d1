package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WithdrawalStatus is the payout lifecycle owned by the payout component.
type WithdrawalStatus string

const (
	WithdrawalStatusOpen     WithdrawalStatus = "open"
	WithdrawalStatusPaidOut  WithdrawalStatus = "paid_out"
	WithdrawalStatusCanceled WithdrawalStatus = "canceled"
)

// Withdrawal aggregates a set of commissions into one payout. Amount always
// equals the sum of the linked item amount snapshots at creation time.
type Withdrawal struct {
	ID          uuid.UUID        `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	AffiliateID uuid.UUID        `gorm:"type:uuid;index;not null" json:"affiliate_id"`
	Affiliate   Affiliate        `gorm:"foreignKey:AffiliateID" json:"-"`
	Amount      float64          `gorm:"type:decimal(20,2);not null" json:"amount"`
	Currency    string           `gorm:"type:varchar(3);not null;default:'EUR'" json:"currency"`
	Status      WithdrawalStatus `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	Items       []WithdrawalItem `gorm:"foreignKey:WithdrawalID" json:"items"`
	CreatedAt   time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`
}

// WithdrawalItem links one commission into a withdrawal with an amount
// snapshot. CommissionID is unique across all items (see migrations), so a
// commission can never be paid through two withdrawals.
type WithdrawalItem struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	WithdrawalID uuid.UUID  `gorm:"type:uuid;index;not null" json:"withdrawal_id"`
	CommissionID uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"commission_id"`
	Commission   Commission `gorm:"foreignKey:CommissionID" json:"-"`
	Amount       float64    `gorm:"type:decimal(20,2);not null" json:"amount"`
	CreatedAt    time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}
