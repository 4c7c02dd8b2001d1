package commission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 {
	return &v
}

func TestEvaluateRecommendedMargin(t *testing.T) {
	// Sold at the recommended price without a fixed commission: the seller
	// margin is paid per unit.
	eval := Evaluate(LineInput{
		SalePrice:        150,
		Quantity:         2,
		CostPrice:        100,
		RecommendedPrice: 150,
	})

	assert.Equal(t, 100.00, eval.Amount)
	assert.Equal(t, RuleRecommendedMargin, eval.RuleCode)
	if assert.NotNil(t, eval.Rate) {
		assert.Equal(t, 50.00, *eval.Rate)
	}
}

func TestEvaluateFixedCommissionWinsAtRecommendedPrice(t *testing.T) {
	eval := Evaluate(LineInput{
		SalePrice:        150,
		Quantity:         2,
		CostPrice:        100,
		RecommendedPrice: 150,
		FixedCommission:  floatPtr(50),
	})

	assert.Equal(t, 100.00, eval.Amount)
	assert.Equal(t, RuleFixedCommission, eval.RuleCode)
	assert.Nil(t, eval.Rate)
}

func TestEvaluateModifiedPriceIgnoresFixedCommission(t *testing.T) {
	// Price moved away from the recommendation, so the fixed amount no
	// longer applies and the actual margin is paid.
	eval := Evaluate(LineInput{
		SalePrice:        140,
		Quantity:         1,
		CostPrice:        80,
		RecommendedPrice: 120,
		FixedCommission:  floatPtr(25),
	})

	assert.Equal(t, 60.00, eval.Amount)
	assert.Equal(t, RuleModifiedMargin, eval.RuleCode)
}

func TestEvaluatePriceAtCostYieldsZero(t *testing.T) {
	eval := Evaluate(LineInput{
		SalePrice:        90,
		Quantity:         1,
		CostPrice:        90,
		RecommendedPrice: 120,
	})

	assert.Equal(t, 0.00, eval.Amount)
	assert.Equal(t, RuleModifiedMargin, eval.RuleCode)
}

func TestEvaluateNeverNegative(t *testing.T) {
	cases := []LineInput{
		{SalePrice: 50, Quantity: 3, CostPrice: 90, RecommendedPrice: 120},
		{SalePrice: 0, Quantity: 1, CostPrice: 10, RecommendedPrice: 10},
		{SalePrice: 10, Quantity: 0, CostPrice: 5, RecommendedPrice: 10},
		{SalePrice: 99.99, Quantity: 7, CostPrice: 100, RecommendedPrice: 100, FixedCommission: floatPtr(5)},
	}

	for _, in := range cases {
		eval := Evaluate(in)
		assert.GreaterOrEqual(t, eval.Amount, 0.00, "input %+v", in)
	}
}

func TestEvaluateEpsilonBoundary(t *testing.T) {
	// 149.995 is within the tolerance of 150, 149.98 is not.
	within := Evaluate(LineInput{
		SalePrice:        149.995,
		Quantity:         1,
		CostPrice:        100,
		RecommendedPrice: 150,
		FixedCommission:  floatPtr(20),
	})
	assert.Equal(t, RuleFixedCommission, within.RuleCode)

	outside := Evaluate(LineInput{
		SalePrice:        149.98,
		Quantity:         1,
		CostPrice:        100,
		RecommendedPrice: 150,
		FixedCommission:  floatPtr(20),
	})
	assert.Equal(t, RuleModifiedMargin, outside.RuleCode)
}

func TestEvaluateRoundingStability(t *testing.T) {
	in := LineInput{
		SalePrice:        33.335,
		Quantity:         3,
		CostPrice:        11.115,
		RecommendedPrice: 40,
	}

	first := Evaluate(in)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first.Amount, Evaluate(in).Amount)
	}

	// The amount carries exactly two decimal digits, so re-rounding it is
	// the identity.
	assert.Equal(t, first.Amount, Round2(first.Amount))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.30, Round2(0.1+0.2))
	assert.Equal(t, 10.01, Round2(10.005))
	assert.Equal(t, -3.33, Round2(-3.333))
}
