// Package session owns the live cart of each company. Every change to a cart
// goes through its session's mailbox, so one goroutine writes the state.
package session

import (
	"context"
	"time"

	"solarshop/internal/domain/carts"
	"solarshop/internal/domain/coupons"
	"solarshop/internal/domain/orders"
	"solarshop/internal/domain/products"
	"solarshop/internal/events"
	"solarshop/internal/metrics"
	"solarshop/internal/pricing"

	"go.uber.org/zap"
)

// Checkout creates an order and stores the emptied cart atomically.
type Checkout interface {
	PlaceOrder(ctx context.Context, d orders.Draft, emptied carts.Snapshot) (*orders.Order, int64, error)
}

type OrderNumbers interface {
	Generate() (string, error)
}

type Deps struct {
	Products  products.Store
	Coupons   coupons.Store
	Carts     carts.Store
	Checkout  Checkout
	Numbers   OrderNumbers
	Publisher events.Publisher
	Metrics   *metrics.Metrics
	Logger    *zap.SugaredLogger
	Policy    pricing.Policy

	// PublishTimeout bounds each best-effort event publish.
	PublishTimeout time.Duration
	// SessionIdle is how long a session may go without being handed out
	// before RunSync drops it.
	SessionIdle time.Duration
	Now         func() time.Time
}

const DefaultSessionIdle = 30 * time.Minute

func (d *Deps) defaults() {
	if d.Publisher == nil {
		d.Publisher = events.Nop{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	if d.PublishTimeout <= 0 {
		d.PublishTimeout = 5 * time.Second
	}
	if d.SessionIdle <= 0 {
		d.SessionIdle = DefaultSessionIdle
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Policy.TaxRate.IsZero() && d.Policy.FlatShipping.IsZero() && d.Policy.FreeShippingThreshold.IsZero() {
		d.Policy = pricing.DefaultPolicy()
	}
}
