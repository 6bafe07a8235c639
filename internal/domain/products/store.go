package products

import (
	"context"
	"errors"
	"fmt"

	"solarshop/internal/infra/dbx"
	"solarshop/internal/pricing"

	"github.com/jackc/pgx/v5"
)

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

// GetPricing resolves the tier table for a company. A company agreement row
// replaces the whole public table, never single tiers.
func (r *Repository) GetPricing(ctx context.Context, companyID, productID string) (*Pricing, error) {
	var p Pricing

	err := r.db.QueryRow(ctx, `
SELECT
  p.id,
  p.sku,
  p.name,
  p.retail_price,
  GREATEST(p.minimum_order, 1),
  CASE WHEN cp.product_id IS NULL THEN p.quantity_tier_1 ELSE cp.quantity_tier_1 END,
  CASE WHEN cp.product_id IS NULL THEN p.price_tier_1    ELSE cp.price_tier_1    END,
  COALESCE(CASE WHEN cp.product_id IS NULL THEN p.quantity_tier_2 ELSE cp.quantity_tier_2 END, 0),
  COALESCE(CASE WHEN cp.product_id IS NULL THEN p.price_tier_2    ELSE cp.price_tier_2    END, 0),
  COALESCE(CASE WHEN cp.product_id IS NULL THEN p.quantity_tier_3 ELSE cp.quantity_tier_3 END, 0),
  COALESCE(CASE WHEN cp.product_id IS NULL THEN p.price_tier_3    ELSE cp.price_tier_3    END, 0),
  cp.product_id IS NOT NULL
FROM products p
LEFT JOIN company_prices cp
  ON cp.product_id = p.id
 AND cp.company_id = $2
WHERE p.id = $1
  AND p.is_active = true
`, productID, companyID).Scan(
		&p.ProductID,
		&p.SKU,
		&p.Name,
		&p.RetailPrice,
		&p.MinimumOrder,
		&p.Tiers[0].MinQuantity,
		&p.Tiers[0].UnitPrice,
		&p.Tiers[1].MinQuantity,
		&p.Tiers[1].UnitPrice,
		&p.Tiers[2].MinQuantity,
		&p.Tiers[2].UnitPrice,
		&p.CompanyPricing,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product pricing: %w", err)
	}

	return &p, nil
}

func (r *Repository) GetOffer(ctx context.Context, offerID, productID string) (*pricing.Offer, error) {
	var o pricing.Offer

	err := r.db.QueryRow(ctx, `
SELECT po.id, po.name, po.discount_type, po.discount_value
FROM partner_offers po
JOIN partner_offer_products pop
  ON pop.offer_id = po.id
 AND pop.product_id = $2
WHERE po.id = $1
  AND po.is_active = true
  AND (po.starts_at IS NULL OR po.starts_at <= now())
  AND (po.ends_at   IS NULL OR po.ends_at   >= now())
`, offerID, productID).Scan(&o.ID, &o.Name, &o.Type, &o.Discount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("get partner offer: %w", err)
	}

	return &o, nil
}
