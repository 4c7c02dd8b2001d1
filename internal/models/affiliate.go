package models

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

// Affiliate represents a platform user who refers orders and signups and
// earns commissions and referral points
type Affiliate struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	DisplayName  string         `gorm:"type:varchar(100)" json:"display_name"`
	ReferralCode string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"referral_code"`
	Active       bool           `gorm:"default:true" json:"active"`
	PointBalance int64          `gorm:"default:0" json:"point_balance"`
	CreatedAt    time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Customer represents a buyer. ReferredByID is the permanent first-referrer-wins
// linkage stamped at signup time.
type Customer struct {
	ID           uuid.UUID      `gorm:"type:uuid;primary_key;default:uuid_generate_v4()" json:"id"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	ReferredByID *uuid.UUID     `gorm:"type:uuid;index" json:"referred_by_id"`
	ReferredBy   *Affiliate     `gorm:"foreignKey:ReferredByID" json:"-"`
	IsVerified   bool           `gorm:"default:false" json:"is_verified"`
	CreatedAt    time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns the id and derives a referral code when the caller
// did not provide one.
func (a *Affiliate) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.ReferralCode == "" {
		a.ReferralCode = NewReferralCode(a.DisplayName)
	}
	return nil
}

const codeSuffixCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// NewReferralCode derives a referral code from an affiliate display name.
// The random suffix keeps codes unique across affiliates with the same name.
func NewReferralCode(displayName string) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = codeSuffixCharset[rand.Intn(len(codeSuffixCharset))]
	}
	return fmt.Sprintf("%s-%s", slug.Make(displayName), string(suffix))
}
