package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

type CouponType string

const (
	CouponPercentage   CouponType = "percentage"
	CouponFixedAmount  CouponType = "fixed_amount"
	CouponFreeShipping CouponType = "free_shipping"
)

var (
	ErrInvalidCouponType   = errors.New("invalid coupon type")
	ErrNegativeCouponValue = errors.New("coupon value cannot be negative")
	ErrPercentageRange     = errors.New("percentage must be between 0 and 100")
)

func (t CouponType) Valid() bool {
	switch t {
	case CouponPercentage, CouponFixedAmount, CouponFreeShipping:
		return true
	}
	return false
}

// EvaluateCoupon computes the discount a coupon grants against the pre-coupon
// subtotal. Fixed amounts are capped at the subtotal; free shipping discounts
// nothing here and is handled by Summarize.
func EvaluateCoupon(t CouponType, value, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if value.IsNegative() {
		return decimal.Zero, ErrNegativeCouponValue
	}
	switch t {
	case CouponPercentage:
		if value.GreaterThan(hundred) {
			return decimal.Zero, ErrPercentageRange
		}
		return Round2(Percent(subtotal, value)), nil
	case CouponFixedAmount:
		if subtotal.IsNegative() {
			return decimal.Zero, nil
		}
		return Round2(decimal.Min(value, subtotal)), nil
	case CouponFreeShipping:
		return decimal.Zero, nil
	default:
		return decimal.Zero, ErrInvalidCouponType
	}
}

// AddDiscount adds a frozen coupon amount to the cart's cumulative discount.
func AddDiscount(total, amount decimal.Decimal) decimal.Decimal {
	return Round2(total.Add(amount))
}

// SubtractDiscount removes a frozen coupon amount, never going below zero.
func SubtractDiscount(total, amount decimal.Decimal) decimal.Decimal {
	return Round2(decimal.Max(total.Sub(amount), decimal.Zero))
}
