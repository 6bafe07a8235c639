package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"solarshop/internal/domain/carts"
	"solarshop/internal/domain/coupons"
	"solarshop/internal/domain/orders"
	"solarshop/internal/domain/products"
	"solarshop/internal/metrics"
	"solarshop/internal/pricing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeProducts struct {
	pricing map[string]*products.Pricing
	offers  map[string]*pricing.Offer
	err     error
}

func (f *fakeProducts) GetPricing(_ context.Context, _, productID string) (*products.Pricing, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.pricing[productID]
	if !ok {
		return nil, products.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProducts) GetOffer(_ context.Context, offerID, _ string) (*pricing.Offer, error) {
	o, ok := f.offers[offerID]
	if !ok {
		return nil, products.ErrOfferNotFound
	}
	cp := *o
	return &cp, nil
}

type fakeCoupons struct {
	byCode map[string]*coupons.Coupon
}

func (f *fakeCoupons) FindByCode(_ context.Context, code string) (*coupons.Coupon, error) {
	c, ok := f.byCode[strings.ToUpper(code)]
	if !ok {
		return nil, coupons.ErrCouponNotFound
	}
	cp := *c
	return &cp, nil
}

// fakeCarts mimics the repository: a missing cart is version zero and only
// that version may create it.
type fakeCarts struct {
	mu      sync.Mutex
	snaps   map[string]carts.Snapshot
	loadErr error
	saveErr error
	saves   int
	onLoad  func(ctx context.Context) error
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{snaps: map[string]carts.Snapshot{}}
}

func (f *fakeCarts) Load(ctx context.Context, companyID string) (*carts.Snapshot, error) {
	f.mu.Lock()
	hook, loadErr := f.onLoad, f.loadErr
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}
	if loadErr != nil {
		return nil, loadErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.snaps[companyID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeCarts) Save(_ context.Context, s carts.Snapshot) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.saveErr != nil {
		return 0, f.saveErr
	}
	current := f.snaps[s.CompanyID].Version
	if current != s.Version {
		return 0, carts.ErrVersionConflict
	}
	s.Version = current + 1
	f.snaps[s.CompanyID] = s
	f.saves++
	return s.Version, nil
}

func (f *fakeCarts) Delete(_ context.Context, companyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.snaps, companyID)
	return nil
}

func (f *fakeCarts) PurgeExpired(context.Context) (int64, error) { return 0, nil }

func (f *fakeCarts) setLoadHook(h func(ctx context.Context) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onLoad = h
}

func (f *fakeCarts) stored(companyID string) carts.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snaps[companyID]
}

type fakeCheckout struct {
	carts  *fakeCarts
	drafts []orders.Draft
	err    error
}

func (f *fakeCheckout) PlaceOrder(ctx context.Context, dr orders.Draft, emptied carts.Snapshot) (*orders.Order, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	v, err := f.carts.Save(ctx, emptied)
	if err != nil {
		return nil, 0, err
	}
	f.drafts = append(f.drafts, dr)
	return &orders.Order{
		ID:          1,
		CompanyID:   dr.Cart.CompanyID,
		OrderNumber: dr.OrderNumber,
		Status:      "pending",
		Subtotal:    dr.Summary.Subtotal,
		Total:       dr.Summary.Total,
	}, v, nil
}

type fixedNumbers string

func (n fixedNumbers) Generate() (string, error) { return string(n), nil }

type published struct {
	event   string
	key     string
	payload map[string]any
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
}

func (f *fakePublisher) Publish(_ context.Context, event, key string, payload map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, published{event: event, key: key, payload: payload})
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func (f *fakePublisher) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e.event == event {
			n++
		}
	}
	return n
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (f *fakePublisher) payload(event string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if e.event == event {
			return e.payload
		}
	}
	return nil
}

type harness struct {
	manager   *Manager
	products  *fakeProducts
	coupons   *fakeCoupons
	carts     *fakeCarts
	checkout  *fakeCheckout
	publisher *fakePublisher
	clock     *fakeClock
	metrics   *metrics.Metrics
}

func newHarness() *harness {
	h := &harness{
		products: &fakeProducts{
			pricing: map[string]*products.Pricing{
				"panel": {
					ProductID:    "panel",
					SKU:          "PNL-400",
					Name:         "Panel 400W",
					RetailPrice:  d("120"),
					MinimumOrder: 1,
					Tiers: pricing.Tiers{
						{MinQuantity: 1, UnitPrice: d("100")},
						{MinQuantity: 10, UnitPrice: d("90")},
						{MinQuantity: 50, UnitPrice: d("80")},
					},
				},
				"rail": {
					ProductID:    "rail",
					SKU:          "RL-2M",
					Name:         "Mounting rail",
					RetailPrice:  d("12.50"),
					MinimumOrder: 5,
					Tiers:        pricing.Tiers{{MinQuantity: 5, UnitPrice: d("10")}},
				},
			},
			offers: map[string]*pricing.Offer{
				"spring": {ID: "spring", Name: "Spring deal", Type: pricing.OfferPercentage, Discount: d("10")},
			},
		},
		coupons: &fakeCoupons{byCode: map[string]*coupons.Coupon{
			"TEN":   {ID: "c-ten", Code: "TEN", Type: pricing.CouponPercentage, Value: d("10")},
			"FIFTY": {ID: "c-fifty", Code: "FIFTY", Type: pricing.CouponFixedAmount, Value: d("50")},
			"BIG":   {ID: "c-big", Code: "BIG", Type: pricing.CouponFixedAmount, Value: d("5"), MinOrderValue: d("5000")},
		}},
		carts:     newFakeCarts(),
		publisher: &fakePublisher{},
		clock:     &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	h.checkout = &fakeCheckout{carts: h.carts}

	h.manager = NewManager(Deps{
		Products:  h.products,
		Coupons:   h.coupons,
		Carts:     h.carts,
		Checkout:  h.checkout,
		Numbers:   fixedNumbers("SUN-TEST0001"),
		Publisher: h.publisher,
		Metrics:   h.metrics,
		Policy:    pricing.DefaultPolicy(),
		Now:       h.clock.Now,
	})
	return h
}

// productsPricing is a single-tier product.
func productsPricing(id, unit, retail string) products.Pricing {
	return products.Pricing{
		ProductID:    id,
		SKU:          id,
		Name:         id,
		RetailPrice:  d(retail),
		MinimumOrder: 1,
		Tiers:        pricing.Tiers{{MinQuantity: 1, UnitPrice: d(unit)}},
	}
}
