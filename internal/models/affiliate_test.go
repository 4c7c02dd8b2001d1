package models

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNewReferralCode(t *testing.T) {
	code := NewReferralCode("Jane's Coffee Shop")

	assert.True(t, strings.HasPrefix(code, "jane-s-coffee-shop-"))
	suffix := strings.TrimPrefix(code, "jane-s-coffee-shop-")
	assert.Len(t, suffix, 6)
	for _, c := range suffix {
		assert.Contains(t, codeSuffixCharset, string(c))
	}
}

func TestNewReferralCodeUniqueAcrossSameName(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		seen[NewReferralCode("Acme Media")] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestAffiliateBeforeCreateDerivesCode(t *testing.T) {
	affiliate := &Affiliate{DisplayName: "Summer Promo Crew"}

	err := affiliate.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, affiliate.ID)
	assert.True(t, strings.HasPrefix(affiliate.ReferralCode, "summer-promo-crew-"))
}

func TestAffiliateBeforeCreateKeepsProvidedCode(t *testing.T) {
	id := uuid.New()
	affiliate := &Affiliate{ID: id, DisplayName: "Summer Promo Crew", ReferralCode: "summer-promo"}

	err := affiliate.BeforeCreate(nil)

	assert.NoError(t, err)
	assert.Equal(t, id, affiliate.ID)
	assert.Equal(t, "summer-promo", affiliate.ReferralCode)
}
