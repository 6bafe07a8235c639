package coupons

import (
	"context"
	"errors"
	"time"

	"solarshop/internal/pricing"

	"github.com/shopspring/decimal"
)

var ErrCouponNotFound = errors.New("coupon not found")

type Coupon struct {
	ID            string             `json:"id"`
	Code          string             `json:"code"`
	Type          pricing.CouponType `json:"type"`
	Value         decimal.Decimal    `json:"value"`
	Title         string             `json:"title"`
	Description   string             `json:"description"`
	MinOrderValue decimal.Decimal    `json:"min_order_value"`
	StartsAt      *time.Time         `json:"starts_at,omitempty"`
	EndsAt        *time.Time         `json:"ends_at,omitempty"`
}

type Store interface {
	// FindByCode returns an active coupon whose validity window contains now.
	// Codes are matched case-insensitively.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}
