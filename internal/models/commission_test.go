package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct {
		from, to CommissionStatus
	}{
		{CommissionStatusPendingCalc, CommissionStatusCalculated},
		{CommissionStatusCalculated, CommissionStatusEligible},
		{CommissionStatusCalculated, CommissionStatusCanceled},
		{CommissionStatusEligible, CommissionStatusApproved},
		{CommissionStatusEligible, CommissionStatusRejected},
		{CommissionStatusEligible, CommissionStatusAdjusted},
		{CommissionStatusApproved, CommissionStatusPaid},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct {
		from, to CommissionStatus
	}{
		{CommissionStatusPendingCalc, CommissionStatusEligible},
		{CommissionStatusCalculated, CommissionStatusPaid},
		{CommissionStatusEligible, CommissionStatusPaid},
		{CommissionStatusPaid, CommissionStatusCanceled},
		{CommissionStatusPaid, CommissionStatusAdjusted},
		{CommissionStatusCanceled, CommissionStatusEligible},
		{CommissionStatusRejected, CommissionStatusEligible},
	}
	for _, tc := range denied {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestIsPaid(t *testing.T) {
	c := Commission{Status: CommissionStatusApproved}
	assert.False(t, c.IsPaid())

	withdrawalID := uuid.New()
	c.PaidWithdrawalID = &withdrawalID
	assert.True(t, c.IsPaid())
}
