package commission

import (
	"github.com/shopspring/decimal"
)

// Rule codes stamped on commissions so backfill and reporting can tell how an
// amount was computed.
const (
	RuleFixedCommission   = "FIXED_COMMISSION"
	RuleRecommendedMargin = "RECOMMENDED_MARGIN"
	RuleModifiedMargin    = "MODIFIED_MARGIN"
)

// PriceEpsilon is the tolerance used when comparing a sale price against the
// recommended price. Inherited from the pricing rules as-is; confirm with the
// product owner before changing.
const PriceEpsilon = 0.01

// LineInput is everything the rules need to price one order line.
type LineInput struct {
	SalePrice        float64
	Quantity         int
	CostPrice        float64
	RecommendedPrice float64
	FixedCommission  *float64
}

// Evaluation is the outcome of pricing one order line. Rate is the per-unit
// margin for margin rules and nil when a fixed amount rule applied. Amount is
// rounded to two decimals and is never negative.
type Evaluation struct {
	Amount   float64
	Rate     *float64
	RuleCode string
}

// Evaluate applies the commission rules to one order line. It is a pure
// function: a fixed per-unit commission wins when the line sold at the
// recommended price, otherwise the seller margin (floored at zero) is paid
// out per unit.
func Evaluate(in LineInput) Evaluation {
	sale := decimal.NewFromFloat(in.SalePrice)
	recommended := decimal.NewFromFloat(in.RecommendedPrice)
	qty := decimal.NewFromInt(int64(in.Quantity))
	epsilon := decimal.NewFromFloat(PriceEpsilon)

	soldAtRecommended := sale.Sub(recommended).Abs().LessThan(epsilon)

	if soldAtRecommended && in.FixedCommission != nil && *in.FixedCommission > 0 {
		fixed := decimal.NewFromFloat(*in.FixedCommission)
		amount, _ := fixed.Mul(qty).Round(2).Float64()
		return Evaluation{
			Amount:   amount,
			RuleCode: RuleFixedCommission,
		}
	}

	margin := sale.Sub(decimal.NewFromFloat(in.CostPrice))
	if margin.IsNegative() {
		margin = decimal.Zero
	}

	ruleCode := RuleModifiedMargin
	if soldAtRecommended {
		ruleCode = RuleRecommendedMargin
	}

	perUnit, _ := margin.Round(2).Float64()
	amount, _ := margin.Mul(qty).Round(2).Float64()
	return Evaluation{
		Amount:   amount,
		Rate:     &perUnit,
		RuleCode: ruleCode,
	}
}

// Round2 rounds a monetary value to two decimal places using half-up
// rounding. Shared by the ledger and the backfill delta computation so
// repeated recomputation is drift-free.
func Round2(v float64) float64 {
	out, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return out
}
