package allocation

import (
	"math"

	"github.com/minghuang/etfdca/internal/strategyconfig"
)

// feeFor computes the fee on a gross USD amount: rate on gross, floored at
// the schedule's minimum. Zero gross carries zero fee.
func feeFor(side strategyconfig.FeeSide, grossUSD float64) float64 {
	if grossUSD <= 0 {
		return 0
	}
	fee := side.Rate * grossUSD
	if fee < side.MinUSD {
		fee = side.MinUSD
	}
	return fee
}

// roundDownTo rounds x down to a multiple of step. A non-positive step
// leaves x unchanged. The epsilon absorbs binary representation error in
// x/step (steps like 0.0001 are not exact in float64), which would
// otherwise truncate one extra step.
func roundDownTo(x, step float64) float64 {
	if step <= 0 {
		return x
	}
	return math.Floor(x/step+1e-9) * step
}

// maxAffordableShares finds the largest share count, respecting the
// fractional policy, such that shares*price + fee(shares*price) fits the
// budget. It never overspends: rounding is always down.
func maxAffordableShares(budgetUSD, price float64, allowFractional bool, step float64, side strategyconfig.FeeSide) (shares, fee float64) {
	if budgetUSD <= 0 || price <= 0 {
		return 0, 0
	}
	if !allowFractional {
		step = 1
	}

	shares = roundDownTo(budgetUSD/price, step)
	for shares > 0 {
		fee = feeFor(side, shares*price)
		if shares*price+fee <= budgetUSD+1e-9 {
			return shares, fee
		}
		shares = roundDownTo(shares-step, step)
	}
	return 0, 0
}
