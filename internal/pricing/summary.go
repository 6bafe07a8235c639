package pricing

import "github.com/shopspring/decimal"

// Policy holds the summary constants. The zero corrections (DeductCoupons,
// HonorFreeShipping) keep the storefront's historical totals: coupon discounts
// are reported but not subtracted, and free-shipping coupons do not zero the
// shipping estimate.
type Policy struct {
	TaxRate               decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	FlatShipping          decimal.Decimal
	DeductCoupons         bool
	HonorFreeShipping     bool
}

func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               decimal.RequireFromString("0.25"),
		FreeShippingThreshold: decimal.NewFromInt(1000),
		FlatShipping:          decimal.NewFromInt(50),
	}
}

type Summary struct {
	ItemCount         int             `json:"item_count"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	TotalSavings      decimal.Decimal `json:"total_savings"`
	CouponDiscount    decimal.Decimal `json:"coupon_discount"`
	EstimatedTax      decimal.Decimal `json:"estimated_tax"`
	EstimatedShipping decimal.Decimal `json:"estimated_shipping"`
	Total             decimal.Decimal `json:"total"`
}

// Summarize assembles the cart summary from aggregated totals and the
// cumulative coupon discount. freeShipping reports whether a free-shipping
// coupon is applied; it only matters when the policy honors it.
func Summarize(t Totals, couponDiscount decimal.Decimal, freeShipping bool, p Policy) Summary {
	tax := Round2(t.Subtotal.Mul(p.TaxRate))

	shipping := p.FlatShipping
	if t.Subtotal.GreaterThan(p.FreeShippingThreshold) || (p.HonorFreeShipping && freeShipping) {
		shipping = decimal.Zero
	}

	total := t.Subtotal.Add(tax).Add(shipping)
	if p.DeductCoupons {
		total = decimal.Max(total.Sub(couponDiscount), decimal.Zero)
	}

	return Summary{
		ItemCount:         t.TotalItems,
		Subtotal:          t.Subtotal,
		TotalSavings:      t.TotalSavings,
		CouponDiscount:    couponDiscount,
		EstimatedTax:      tax,
		EstimatedShipping: shipping,
		Total:             Round2(total),
	}
}
