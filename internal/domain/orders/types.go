package orders

import (
	"context"
	"errors"
	"time"

	"solarshop/internal/domain/carts"
	"solarshop/internal/pricing"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrEmptyCart     = errors.New("cart is empty")
)

type Order struct {
	ID             int64           `json:"id"`
	CompanyID      string          `json:"company_id"`
	OrderNumber    string          `json:"order_number"`
	Status         string          `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TotalSavings   decimal.Decimal `json:"total_savings"`
	CouponDiscount decimal.Decimal `json:"coupon_discount"`
	Tax            decimal.Decimal `json:"tax"`
	Shipping       decimal.Decimal `json:"shipping"`
	Total          decimal.Decimal `json:"total"`
	CouponCodes    []string        `json:"coupon_codes"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Items from order_items table
type OrderItem struct {
	ID             int64           `json:"id"`
	OrderID        int64           `json:"order_id"`
	ProductID      string          `json:"product_id"`
	SKU            string          `json:"sku"`
	ProductName    string          `json:"product_name"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	TotalPrice     decimal.Decimal `json:"total_price"`
	AppliedTier    int             `json:"applied_tier"`
	PartnerOfferID *string         `json:"partner_offer_id,omitempty"`
}

type OrderDetail struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
}

// Draft is the immutable snapshot an order is created from.
type Draft struct {
	OrderNumber string
	Cart        carts.Snapshot
	Summary     pricing.Summary
}

type Store interface {
	Create(ctx context.Context, d Draft) (*Order, error)
	GetDetail(ctx context.Context, companyID, orderNumber string) (*OrderDetail, error)
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]Order, int, error)
}
