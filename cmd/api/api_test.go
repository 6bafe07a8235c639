package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"solarshop/internal/auth"
	"solarshop/internal/domain/carts"
	"solarshop/internal/domain/coupons"
	"solarshop/internal/domain/orders"
	"solarshop/internal/domain/products"
	"solarshop/internal/metrics"
	"solarshop/internal/params"
	"solarshop/internal/pricing"
	"solarshop/internal/ratelimiter"
	"solarshop/internal/session"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "handler-test-secret"

type memProducts struct{}

func (memProducts) GetPricing(_ context.Context, _, productID string) (*products.Pricing, error) {
	if productID != "panel" {
		return nil, products.ErrProductNotFound
	}
	return &products.Pricing{
		ProductID:    "panel",
		SKU:          "PNL-400",
		Name:         "Panel 400W",
		RetailPrice:  decimal.NewFromInt(120),
		MinimumOrder: 1,
		Tiers: pricing.Tiers{
			{MinQuantity: 1, UnitPrice: decimal.NewFromInt(100)},
			{MinQuantity: 10, UnitPrice: decimal.NewFromInt(90)},
		},
	}, nil
}

func (memProducts) GetOffer(context.Context, string, string) (*pricing.Offer, error) {
	return nil, products.ErrOfferNotFound
}

type memCoupons struct{}

func (memCoupons) FindByCode(_ context.Context, code string) (*coupons.Coupon, error) {
	if !strings.EqualFold(code, "TEN") {
		return nil, coupons.ErrCouponNotFound
	}
	return &coupons.Coupon{ID: "c-ten", Code: "TEN", Type: pricing.CouponPercentage, Value: decimal.NewFromInt(10)}, nil
}

type memCarts struct {
	mu    sync.Mutex
	snaps map[string]carts.Snapshot
}

func (m *memCarts) Load(_ context.Context, companyID string) (*carts.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snaps[companyID]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memCarts) Save(_ context.Context, s carts.Snapshot) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snaps[s.CompanyID].Version != s.Version {
		return 0, carts.ErrVersionConflict
	}
	s.Version++
	m.snaps[s.CompanyID] = s
	return s.Version, nil
}

func (m *memCarts) Delete(context.Context, string) error        { return nil }
func (m *memCarts) PurgeExpired(context.Context) (int64, error) { return 0, nil }
func (m *memCarts) GetDetail(context.Context, string, string) (*orders.OrderDetail, error) {
	return nil, orders.ErrOrderNotFound
}

func (m *memCarts) ListByCompany(_ context.Context, companyID string, limit, offset int) ([]orders.Order, int, error) {
	all := []orders.Order{{CompanyID: companyID, OrderNumber: "SUN-A"}, {CompanyID: companyID, OrderNumber: "SUN-B"}}
	if offset >= len(all) {
		return []orders.Order{}, len(all), nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], len(all), nil
}

func (m *memCarts) Create(context.Context, orders.Draft) (*orders.Order, error) {
	return nil, nil
}

func (m *memCarts) PlaceOrder(ctx context.Context, d orders.Draft, emptied carts.Snapshot) (*orders.Order, int64, error) {
	v, err := m.Save(ctx, emptied)
	if err != nil {
		return nil, 0, err
	}
	return &orders.Order{CompanyID: d.Cart.CompanyID, OrderNumber: d.OrderNumber, Total: d.Summary.Total}, v, nil
}

type fixedNumbers string

func (n fixedNumbers) Generate() (string, error) { return string(n), nil }

func newTestApp(t *testing.T) *application {
	t.Helper()

	store := &memCarts{snaps: map[string]carts.Snapshot{}}
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	logger := zap.NewNop().Sugar()

	manager := session.NewManager(session.Deps{
		Products: memProducts{},
		Coupons:  memCoupons{},
		Carts:    store,
		Checkout: store,
		Numbers:  fixedNumbers("SUN-HTTPTEST01"),
		Metrics:  m,
		Logger:   logger,
		Policy:   pricing.DefaultPolicy(),
	})
	t.Cleanup(manager.Close)

	cfg := config{
		env:         "test",
		corsOrigins: []string{"http://*"},
		auth: authConfig{
			basic: basicConfig{user: "ops", pass: "secret"},
			token: tokenConfig{secret: testSecret, aud: "solarshop", iss: "solarshop"},
		},
		cart: cartConfig{operationTimeout: 5 * time.Second},
	}

	return &application{
		config:        cfg,
		logger:        logger,
		carts:         manager,
		cartStore:     store,
		orders:        store,
		authenticator: auth.NewJWTAuthenticator(testSecret, "solarshop", "solarshop"),
		metrics:       m,
		registry:      registry,
	}
}

func partnerToken(t *testing.T, companyID string) string {
	t.Helper()
	claims := auth.PartnerClaims{
		CompanyID:   companyID,
		CompanyName: "Sunrise Installers",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "solarshop",
			Audience:  jwt.ClaimStrings{"solarshop"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeView(t *testing.T, rr *httptest.ResponseRecorder) session.View {
	t.Helper()
	var env struct {
		Data session.View `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env.Data
}

func TestHealth_requiresBasicAuth(t *testing.T) {
	app := newTestApp(t)
	mux := app.mount()

	rr := do(t, mux, http.MethodGet, "/v1/health", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("ops:secret")))
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCart_requiresPartnerToken(t *testing.T) {
	app := newTestApp(t)
	mux := app.mount()

	rr := do(t, mux, http.MethodGet, "/v1/partners/cart/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, mux, http.MethodGet, "/v1/partners/cart/", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestCart_addItemAndCoupon(t *testing.T) {
	app := newTestApp(t)
	mux := app.mount()
	token := partnerToken(t, "co-1")

	rr := do(t, mux, http.MethodPost, "/v1/partners/cart/items", token, map[string]any{"product_id": "panel", "quantity": 2})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	view := decodeView(t, rr)
	require.Len(t, view.Items, 1)
	assert.Equal(t, "200.00", view.Summary.Subtotal.StringFixed(2))
	assert.Equal(t, "Sunrise Installers", view.CompanyName)

	rr = do(t, mux, http.MethodPost, "/v1/partners/cart/coupons", token, map[string]any{"code": "ten"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	view = decodeView(t, rr)
	assert.Equal(t, "20.00", view.Summary.CouponDiscount.StringFixed(2))

	rr = do(t, mux, http.MethodPost, "/v1/partners/cart/coupons", token, map[string]any{"code": "TEN"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, mux, http.MethodDelete, "/v1/partners/cart/coupons/c-ten", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeView(t, rr).Coupons)
}

func TestCart_errorMapping(t *testing.T) {
	app := newTestApp(t)
	mux := app.mount()
	token := partnerToken(t, "co-1")

	rr := do(t, mux, http.MethodPost, "/v1/partners/cart/items", token, map[string]any{"product_id": "panel", "quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, mux, http.MethodPost, "/v1/partners/cart/items", token, map[string]any{"product_id": "ghost", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, mux, http.MethodPatch, "/v1/partners/cart/items/ghost", token, map[string]any{"quantity": 3})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, mux, http.MethodPost, "/v1/partners/cart/checkout", token, nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, mux, http.MethodGet, "/v1/partners/orders/SUN-NOPE", token, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCart_updateRemoveAndClear(t *testing.T) {
	app := newTestApp(t)
	mux := app.mount()
	token := partnerToken(t, "co-1")

	rr := do(t, mux, http.MethodPost, "/v1/partners/cart/items", token, map[string]any{"product_id": "panel", "quantity": 2})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, mux, http.MethodPatch, "/v1/partners/cart/items/panel", token, map[string]any{"quantity": 10})
	require.Equal(t, http.StatusOK, rr.Code)
	view := decodeView(t, rr)
	assert.Equal(t, 2, view.Items[0].AppliedTier)

	rr = do(t, mux, http.MethodDelete, "/v1/partners/cart/items/panel", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeView(t, rr).Items)

	rr = do(t, mux, http.MethodDelete, "/v1/partners/cart/", token, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, mux, http.MethodPut, "/v1/partners/cart/sidebar", token, map[string]any{"open": true})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decodeView(t, rr).SidebarOpen)

	rr = do(t, mux, http.MethodPost, "/v1/partners/cart/sync", token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestCart_checkout(t *testing.T) {
	app := newTestApp(t)
	mux := app.mount()
	token := partnerToken(t, "co-1")

	rr := do(t, mux, http.MethodPost, "/v1/partners/cart/items", token, map[string]any{"product_id": "panel", "quantity": 10})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, mux, http.MethodPost, "/v1/partners/cart/checkout", token, nil)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var env struct {
		Data checkoutResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	require.NotNil(t, env.Data.Order)
	assert.Equal(t, "SUN-HTTPTEST01", env.Data.Order.OrderNumber)
	assert.Empty(t, env.Data.Cart.Items)
}

func TestCart_companiesAreIsolated(t *testing.T) {
	app := newTestApp(t)
	mux := app.mount()

	rr := do(t, mux, http.MethodPost, "/v1/partners/cart/items", partnerToken(t, "co-1"), map[string]any{"product_id": "panel", "quantity": 2})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, mux, http.MethodGet, "/v1/partners/cart/", partnerToken(t, "co-2"), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeView(t, rr).Items)
}

func TestRateLimiterPerCompany(t *testing.T) {
	app := newTestApp(t)
	app.config.rateLimiter = ratelimiter.Config{RequestsPerTimeFrame: 1, TimeFrame: time.Minute, Enabled: true}
	rl := ratelimiter.NewFixedWindowLimiter(1, time.Minute)
	t.Cleanup(rl.Stop)
	app.rateLimiter = rl
	mux := app.mount()

	token := partnerToken(t, "co-1")
	assert.Equal(t, http.StatusOK, do(t, mux, http.MethodGet, "/v1/partners/cart/", token, nil).Code)

	rr := do(t, mux, http.MethodGet, "/v1/partners/cart/", token, nil)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "60", rr.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(t, mux, http.MethodGet, "/v1/partners/cart/", partnerToken(t, "co-2"), nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	app := newTestApp(t)
	mux := app.mount()

	do(t, mux, http.MethodGet, "/v1/partners/cart/", partnerToken(t, "co-1"), nil)

	rr := do(t, mux, http.MethodGet, "/v1/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "solarshop_http_requests_total")
}

func TestListOrders_paginates(t *testing.T) {
	app := newTestApp(t)
	mux := app.mount()

	rr := do(t, mux, http.MethodGet, "/v1/partners/orders?limit=1&page=1", partnerToken(t, "co-1"), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var env struct {
		Data struct {
			Orders     []orders.Order    `json:"orders"`
			Pagination params.Pagination `json:"pagination"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	require.Len(t, env.Data.Orders, 1)
	assert.Equal(t, "SUN-A", env.Data.Orders[0].OrderNumber)
	assert.Equal(t, 2, env.Data.Pagination.Total)
	assert.True(t, env.Data.Pagination.HasNext)
}
