package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

type OfferType string

const (
	OfferPercentage  OfferType = "percentage"
	OfferFixedAmount OfferType = "fixed_amount"
)

var ErrInvalidOffer = errors.New("invalid partner offer")

// Offer is a partner campaign discount stacked on top of the tier price.
type Offer struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     OfferType       `json:"type"`
	Discount decimal.Decimal `json:"discount"`
}

// ApplyOffer returns the unit price after stacking the offer on price.
func ApplyOffer(price decimal.Decimal, o Offer) (decimal.Decimal, error) {
	if o.Discount.IsNegative() {
		return price, ErrInvalidOffer
	}
	switch o.Type {
	case OfferPercentage:
		if o.Discount.GreaterThan(hundred) {
			return price, ErrInvalidOffer
		}
		return Round2(price.Sub(Percent(price, o.Discount))), nil
	case OfferFixedAmount:
		return Round2(decimal.Max(price.Sub(o.Discount), decimal.Zero)), nil
	default:
		return price, ErrInvalidOffer
	}
}
