package products

import (
	"context"
	"errors"

	"solarshop/internal/pricing"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOfferNotFound   = errors.New("partner offer not found")
)

// Pricing is what the cart needs to know about a product for one company.
type Pricing struct {
	ProductID    string          `json:"product_id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	RetailPrice  decimal.Decimal `json:"retail_price"`
	MinimumOrder int             `json:"minimum_order"`
	Tiers        pricing.Tiers   `json:"tiers"`
	// CompanyPricing is set when the tiers come from a company agreement
	// instead of the public price list.
	CompanyPricing bool `json:"company_pricing"`
}

type Store interface {
	GetPricing(ctx context.Context, companyID, productID string) (*Pricing, error)
	// GetOffer returns an active partner offer that covers productID.
	GetOffer(ctx context.Context, offerID, productID string) (*pricing.Offer, error)
}
