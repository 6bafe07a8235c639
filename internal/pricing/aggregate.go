package pricing

import "github.com/shopspring/decimal"

// Line is the pricing view of one cart item.
type Line struct {
	Quantity    int
	UnitPrice   decimal.Decimal
	RetailPrice decimal.Decimal
}

// Totals are the aggregated line figures of a cart.
type Totals struct {
	TotalItems   int             `json:"total_items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TotalSavings decimal.Decimal `json:"total_savings"`
}

// Aggregate sums quantities, line amounts and savings. Rounding happens once,
// after summation.
func Aggregate(lines []Line) Totals {
	var (
		items    int
		subtotal = decimal.Zero
		savings  = decimal.Zero
	)
	for _, l := range lines {
		q := decimal.NewFromInt(int64(l.Quantity))
		items += l.Quantity
		subtotal = subtotal.Add(l.UnitPrice.Mul(q))
		savings = savings.Add(l.RetailPrice.Sub(l.UnitPrice).Mul(q))
	}
	return Totals{
		TotalItems:   items,
		Subtotal:     Round2(subtotal),
		TotalSavings: Round2(savings),
	}
}
