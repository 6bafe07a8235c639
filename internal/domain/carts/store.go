package carts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"solarshop/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct {
	db  dbx.Querier
	ttl time.Duration
}

const DefaultTTL = 30 * 24 * time.Hour

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{db: q, ttl: DefaultTTL}
}

// NewRepositoryWithTTL falls back to DefaultTTL when ttl is not positive.
func NewRepositoryWithTTL(q dbx.Querier, ttl time.Duration) *Repository {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Repository{db: q, ttl: ttl}
}

func (r *Repository) Load(ctx context.Context, companyID string) (*Snapshot, error) {
	var (
		s              Snapshot
		items, coupons []byte
	)

	err := r.db.QueryRow(ctx, `
SELECT company_id, items, coupons, coupon_discount, version, updated_at
FROM partner_carts
WHERE company_id = $1
  AND (expires_at IS NULL OR expires_at > now())
`, companyID).Scan(&s.CompanyID, &items, &coupons, &s.CouponDiscount, &s.Version, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}

	if err := json.Unmarshal(items, &s.Items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	if err := json.Unmarshal(coupons, &s.Coupons); err != nil {
		return nil, fmt.Errorf("decode cart coupons: %w", err)
	}
	return &s, nil
}

// Save writes the snapshot guarded by its version. Version zero creates the
// cart; an expired row that blocks the insert is removed and the insert
// retried once. Any other version only updates a live row holding exactly
// that version, so a purged or deleted cart is never recreated by a stale
// writer. Every mismatch is ErrVersionConflict.
func (r *Repository) Save(ctx context.Context, s Snapshot) (int64, error) {
	items, err := json.Marshal(nonNilItems(s.Items))
	if err != nil {
		return 0, fmt.Errorf("encode cart items: %w", err)
	}
	coupons, err := json.Marshal(nonNilCoupons(s.Coupons))
	if err != nil {
		return 0, fmt.Errorf("encode cart coupons: %w", err)
	}
	expiresAt := time.Now().Add(r.ttl)

	if s.Version == 0 {
		return r.insert(ctx, s, items, coupons, expiresAt)
	}

	var version int64
	err = r.db.QueryRow(ctx, `
UPDATE partner_carts SET
  items           = $2,
  coupons         = $3,
  coupon_discount = $4,
  version         = version + 1,
  expires_at      = $5,
  updated_at      = now()
WHERE company_id = $1
  AND version = $6
  AND (expires_at IS NULL OR expires_at > now())
RETURNING version
`, s.CompanyID, items, coupons, s.CouponDiscount, expiresAt, s.Version).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVersionConflict
		}
		return 0, fmt.Errorf("save cart: %w", err)
	}
	return version, nil
}

func (r *Repository) insert(ctx context.Context, s Snapshot, items, coupons []byte, expiresAt time.Time) (int64, error) {
	const maxAttempts = 2

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var version int64
		err := r.db.QueryRow(ctx, `
INSERT INTO partner_carts (company_id, items, coupons, coupon_discount, version, expires_at)
VALUES ($1, $2, $3, $4, 1, $5)
ON CONFLICT (company_id) DO NOTHING
RETURNING version
`, s.CompanyID, items, coupons, s.CouponDiscount, expiresAt).Scan(&version)
		if err == nil {
			return version, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("create cart: %w", err)
		}

		tag, err := r.db.Exec(ctx, `
DELETE FROM partner_carts
WHERE company_id = $1
  AND expires_at IS NOT NULL
  AND expires_at <= now()
`, s.CompanyID)
		if err != nil {
			return 0, fmt.Errorf("drop expired cart: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return 0, ErrVersionConflict
		}
	}

	return 0, ErrVersionConflict
}

func (r *Repository) Delete(ctx context.Context, companyID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM partner_carts WHERE company_id = $1`, companyID)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}

// PurgeExpired removes carts whose TTL ran out.
func (r *Repository) PurgeExpired(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, `
DELETE FROM partner_carts
WHERE expires_at IS NOT NULL
  AND expires_at <= now()
`)
	if err != nil {
		return 0, fmt.Errorf("purge expired carts: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nonNilItems(in []CartItem) []CartItem {
	if in == nil {
		return []CartItem{}
	}
	return in
}

func nonNilCoupons(in []AppliedCoupon) []AppliedCoupon {
	if in == nil {
		return []AppliedCoupon{}
	}
	return in
}
