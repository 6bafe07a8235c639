package coupons

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"solarshop/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct {
	db dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q}
}

func (r *Repository) FindByCode(ctx context.Context, code string) (*Coupon, error) {
	var c Coupon

	err := r.db.QueryRow(ctx, `
SELECT id, code, discount_type, discount_value,
       COALESCE(title, ''), COALESCE(description, ''),
       COALESCE(min_order_value, 0), starts_at, ends_at
FROM coupons
WHERE upper(code) = $1
  AND is_active = true
  AND (starts_at IS NULL OR starts_at <= now())
  AND (ends_at   IS NULL OR ends_at   >= now())
LIMIT 1
`, strings.ToUpper(strings.TrimSpace(code))).Scan(
		&c.ID,
		&c.Code,
		&c.Type,
		&c.Value,
		&c.Title,
		&c.Description,
		&c.MinOrderValue,
		&c.StartsAt,
		&c.EndsAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCouponNotFound
		}
		return nil, fmt.Errorf("find coupon: %w", err)
	}

	return &c, nil
}
