package carts

import (
	"context"
	"sort"
	"time"

	"solarshop/internal/pricing"

	"github.com/shopspring/decimal"
)

type CartItem struct {
	ProductID    string          `json:"product_id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	RetailPrice  decimal.Decimal `json:"retail_price"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	MinimumOrder int             `json:"minimum_order"`

	PriceTier1    decimal.Decimal `json:"price_tier_1"`
	PriceTier2    decimal.Decimal `json:"price_tier_2"`
	PriceTier3    decimal.Decimal `json:"price_tier_3"`
	QuantityTier1 int             `json:"quantity_tier_1"`
	QuantityTier2 int             `json:"quantity_tier_2"`
	QuantityTier3 int             `json:"quantity_tier_3"`
	AppliedTier   int             `json:"applied_tier"`

	PartnerOffer              *pricing.Offer   `json:"partner_offer,omitempty"`
	PartnerOfferOriginalPrice *decimal.Decimal `json:"partner_offer_original_price,omitempty"`
}

func (it CartItem) Tiers() pricing.Tiers {
	return pricing.Tiers{
		{MinQuantity: it.QuantityTier1, UnitPrice: it.PriceTier1},
		{MinQuantity: it.QuantityTier2, UnitPrice: it.PriceTier2},
		{MinQuantity: it.QuantityTier3, UnitPrice: it.PriceTier3},
	}
}

// SetTiers copies a price table onto the item.
func (it *CartItem) SetTiers(t pricing.Tiers) {
	it.QuantityTier1, it.PriceTier1 = t[0].MinQuantity, t[0].UnitPrice
	it.QuantityTier2, it.PriceTier2 = t[1].MinQuantity, t[1].UnitPrice
	it.QuantityTier3, it.PriceTier3 = t[2].MinQuantity, t[2].UnitPrice
}

// Reprice sets UnitPrice, AppliedTier and TotalPrice from the current quantity,
// stacking the partner offer on top of the tier price when present.
func (it *CartItem) Reprice() error {
	tier, price := pricing.ResolveTier(it.Tiers(), it.Quantity)
	it.AppliedTier = tier
	it.PartnerOfferOriginalPrice = nil

	if it.PartnerOffer != nil {
		offered, err := pricing.ApplyOffer(price, *it.PartnerOffer)
		if err != nil {
			return err
		}
		original := price
		it.PartnerOfferOriginalPrice = &original
		price = offered
	}

	it.UnitPrice = price
	it.TotalPrice = pricing.Round2(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	return nil
}

// NextTierHint is the upsell nudge shown next to the line, if any.
func (it CartItem) NextTierHint() (pricing.Hint, bool) {
	return pricing.NextTierHint(it.Tiers(), it.Quantity)
}

type AppliedCoupon struct {
	ID             string             `json:"id"`
	Code           string             `json:"code"`
	Type           pricing.CouponType `json:"type"`
	Value          decimal.Decimal    `json:"value"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	AppliedAt      time.Time          `json:"applied_at"`
	Title          string             `json:"title,omitempty"`
	Description    string             `json:"description,omitempty"`
}

// Snapshot is the persisted form of a cart: plain structured records.
type Snapshot struct {
	CompanyID      string          `json:"company_id"`
	Items          []CartItem      `json:"items"`
	Coupons        []AppliedCoupon `json:"coupons"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	Version        int64           `json:"version"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func sortedItems(items map[string]CartItem) []CartItem {
	out := make([]CartItem, 0, len(items))
	for _, it := range items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

type Store interface {
	// Load returns nil, nil when the company has no live cart.
	Load(ctx context.Context, companyID string) (*Snapshot, error)
	// Save writes s if the stored version still equals s.Version and returns
	// the new version.
	Save(ctx context.Context, s Snapshot) (int64, error)
	Delete(ctx context.Context, companyID string) error

	// housekeeping
	PurgeExpired(ctx context.Context) (int64, error)
}
