package orders

import (
	"context"
	"errors"
	"fmt"

	"solarshop/internal/infra/dbx"

	"github.com/jackc/pgx/v5"
)

type Repository struct {
	q dbx.Querier
}

func NewRepository(q dbx.Querier) *Repository {
	return &Repository{q: q}
}

// Create writes the order header and its lines. Prices are copied from the
// cart snapshot, so later price list changes never touch placed orders.
//
// Assumes this is called INSIDE a transaction.
func (r *Repository) Create(ctx context.Context, d Draft) (*Order, error) {
	if len(d.Cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	codes := make([]string, 0, len(d.Cart.Coupons))
	for _, c := range d.Cart.Coupons {
		codes = append(codes, c.Code)
	}

	o := &Order{
		CompanyID:      d.Cart.CompanyID,
		OrderNumber:    d.OrderNumber,
		Status:         "pending",
		Subtotal:       d.Summary.Subtotal,
		TotalSavings:   d.Summary.TotalSavings,
		CouponDiscount: d.Summary.CouponDiscount,
		Tax:            d.Summary.EstimatedTax,
		Shipping:       d.Summary.EstimatedShipping,
		Total:          d.Summary.Total,
		CouponCodes:    codes,
	}

	err := r.q.QueryRow(ctx, `
INSERT INTO partner_orders (
  company_id, order_number, status,
  subtotal, total_savings, coupon_discount, tax, shipping, total, coupon_codes
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id, created_at
`, o.CompanyID, o.OrderNumber, o.Status,
		o.Subtotal, o.TotalSavings, o.CouponDiscount, o.Tax, o.Shipping, o.Total, o.CouponCodes,
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for _, it := range d.Cart.Items {
		var offerID *string
		if it.PartnerOffer != nil {
			id := it.PartnerOffer.ID
			offerID = &id
		}
		batch.Queue(`
INSERT INTO partner_order_items (
  order_id, product_id, sku, product_name, quantity, unit_price, total_price, applied_tier, partner_offer_id
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
`, o.ID, it.ProductID, it.SKU, it.Name, it.Quantity, it.UnitPrice, it.TotalPrice, it.AppliedTier, offerID)
	}

	if err := r.sendBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("insert order items: %w", err)
	}

	return o, nil
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func (r *Repository) sendBatch(ctx context.Context, b *pgx.Batch) error {
	if bs, ok := r.q.(batchSender); ok {
		return bs.SendBatch(ctx, b).Close()
	}
	for _, qq := range b.QueuedQueries {
		if _, err := r.q.Exec(ctx, qq.SQL, qq.Arguments...); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) GetDetail(ctx context.Context, companyID, orderNumber string) (*OrderDetail, error) {
	var d OrderDetail
	o := &d.Order

	err := r.q.QueryRow(ctx, `
SELECT id, company_id, order_number, status,
       subtotal, total_savings, coupon_discount, tax, shipping, total, coupon_codes, created_at
FROM partner_orders
WHERE company_id = $1 AND order_number = $2
`, companyID, orderNumber).Scan(
		&o.ID, &o.CompanyID, &o.OrderNumber, &o.Status,
		&o.Subtotal, &o.TotalSavings, &o.CouponDiscount, &o.Tax, &o.Shipping, &o.Total, &o.CouponCodes, &o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := r.q.Query(ctx, `
SELECT id, order_id, product_id, sku, product_name, quantity, unit_price, total_price, applied_tier, partner_offer_id
FROM partner_order_items
WHERE order_id = $1
ORDER BY id ASC
`, o.ID)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(
			&it.ID, &it.OrderID, &it.ProductID, &it.SKU, &it.ProductName,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.AppliedTier, &it.PartnerOfferID,
		); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		d.Items = append(d.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order items rows error: %w", err)
	}

	return &d, nil
}

// ListByCompany returns one page of the company's orders, newest first, with
// the total number of orders.
func (r *Repository) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]Order, int, error) {
	var total int
	if err := r.q.QueryRow(ctx,
		`SELECT count(*) FROM partner_orders WHERE company_id = $1`, companyID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	rows, err := r.q.Query(ctx, `
SELECT id, company_id, order_number, status,
       subtotal, total_savings, coupon_discount, tax, shipping, total, coupon_codes, created_at
FROM partner_orders
WHERE company_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`, companyID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.CompanyID, &o.OrderNumber, &o.Status,
			&o.Subtotal, &o.TotalSavings, &o.CouponDiscount, &o.Tax, &o.Shipping, &o.Total, &o.CouponCodes, &o.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("orders rows error: %w", err)
	}

	return out, total, nil
}
