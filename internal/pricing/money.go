// Package pricing holds the cart arithmetic: tier resolution, line aggregation,
// coupon evaluation, partner offer stacking and summary assembly. Every function
// here is pure; callers own persistence.
package pricing

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.RequireFromString("0.5")
)

// Round2 rounds an amount to two decimal places with ties going toward
// positive infinity: floor(x*100 + 0.5) / 100. -0.005 becomes 0, 0.005 becomes
// 0.01.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Shift(2).Add(half).Floor().Shift(-2)
}

// Percent returns value% of amount, unrounded.
func Percent(amount, value decimal.Decimal) decimal.Decimal {
	return amount.Mul(value).Div(hundred)
}
