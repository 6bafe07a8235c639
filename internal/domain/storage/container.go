package storage

import (
	"context"
	"fmt"
	"time"

	"solarshop/internal/domain/carts"
	"solarshop/internal/domain/coupons"
	"solarshop/internal/domain/orders"
	"solarshop/internal/domain/products"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Sales struct {
	Carts  carts.Store
	Orders orders.Store
}

type Container struct {
	pool     *pgxpool.Pool // IMPORTANT: set the pool so WithSalesTx works
	cartTTL  time.Duration
	Products products.Store
	Coupons  coupons.Store
	Sales    Sales
}

// NewContainer wires the repositories over db. Carts untouched for cartTTL
// expire.
func NewContainer(db *pgxpool.Pool, cartTTL time.Duration) *Container {
	return &Container{
		pool:     db,
		cartTTL:  cartTTL,
		Products: products.NewRepository(db),
		Coupons:  coupons.NewRepository(db),
		Sales: Sales{
			Carts:  carts.NewRepositoryWithTTL(db, cartTTL),
			Orders: orders.NewRepository(db),
		},
	}
}

// SalesTx is a temporary, tx-scoped set of repos for atomic units of work.
type SalesTx struct {
	Carts  carts.Store
	Orders orders.Store
}

// WithSalesTx runs a sales unit-of-work atomically.
func (c *Container) WithSalesTx(ctx context.Context, fn func(s *SalesTx) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil (did you forget to set pool in NewContainer?)")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	s := &SalesTx{
		Carts:  carts.NewRepositoryWithTTL(tx, c.cartTTL),
		Orders: orders.NewRepository(tx),
	}

	if err := fn(s); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// PlaceOrder creates the order from d and stores the emptied cart in the same
// transaction, returning the order and the cart's new version.
func (c *Container) PlaceOrder(ctx context.Context, d orders.Draft, emptied carts.Snapshot) (*orders.Order, int64, error) {
	var (
		order   *orders.Order
		version int64
	)

	err := c.WithSalesTx(ctx, func(s *SalesTx) error {
		var err error
		order, err = s.Orders.Create(ctx, d)
		if err != nil {
			return err
		}
		version, err = s.Carts.Save(ctx, emptied)
		return err
	})
	if err != nil {
		return nil, 0, err
	}

	return order, version, nil
}
