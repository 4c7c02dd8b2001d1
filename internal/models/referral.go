package models

import (
	"time"

	"github.com/google/uuid"
)

// ReferralClick is one recorded click on a referral link. Append-only; rows
// are never updated. Only salted hashes of the client IP and user agent are
// stored, never the raw values.
type ReferralClick struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	ReferralCode  string    `gorm:"type:varchar(64);index;not null" json:"referral_code"`
	IPHash        string    `gorm:"type:varchar(64);index;not null" json:"ip_hash"`
	UserAgentHash string    `gorm:"type:varchar(64)" json:"user_agent_hash"`
	Source        string    `gorm:"type:varchar(100)" json:"source"`
	ClickedAt     time.Time `gorm:"index;not null;default:CURRENT_TIMESTAMP" json:"clicked_at"`
}

// ReferralAttribution links a new signup to the referral code that brought
// them. At most one row exists per new user (unique index on new_user_id);
// the first referrer wins and is never overwritten.
type ReferralAttribution struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	ReferralCode string     `gorm:"type:varchar(64);index;not null" json:"referral_code"`
	NewUserID    uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"new_user_id"`
	IPHash       string     `gorm:"type:varchar(64);index" json:"ip_hash"`
	AttributedAt time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP" json:"attributed_at"`
	Verified     bool       `gorm:"default:false" json:"verified"`
	VerifiedAt   *time.Time `json:"verified_at"`
}

// ReferralDispensation is one referral point award. Reference carries the
// ORDER-{order_id} idempotency key: unique per referrer (see migrations), so
// a delivered order can award points at most once.
type ReferralDispensation struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	ReferrerAffiliateID uuid.UUID  `gorm:"type:uuid;index;not null" json:"referrer_affiliate_id"`
	ReferrerAffiliate   Affiliate  `gorm:"foreignKey:ReferrerAffiliateID" json:"-"`
	Points              int64      `gorm:"not null" json:"points"`
	Comment             string     `gorm:"type:text" json:"comment"`
	Reference           string     `gorm:"type:varchar(100);not null" json:"reference"`
	CreatedByAdminID    *uuid.UUID `gorm:"type:uuid" json:"created_by_admin_id"`
	MetaData            JSON       `gorm:"type:jsonb" json:"metadata"`
	CreatedAt           time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}
