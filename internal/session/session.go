package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"solarshop/internal/domain/carts"
	"solarshop/internal/domain/coupons"
	"solarshop/internal/domain/orders"
	"solarshop/internal/domain/products"
	"solarshop/internal/pricing"
)

var ErrClosed = errors.New("cart session closed")

const (
	errMsgProductNotFound = "product not found"
	errMsgOfferNotFound   = "partner offer not found or expired"
	errMsgCouponNotFound  = "invalid or expired coupon code"
	errMsgConflict        = "cart was changed elsewhere and has been reloaded, please retry"
)

type persistFunc func(ctx context.Context, snap carts.Snapshot) (int64, error)

// Session is the cart of one company.
type Session struct {
	deps      *Deps
	companyID string

	// owned by the loop goroutine
	state  carts.State
	loaded bool

	inbox     chan func()
	quit      chan struct{}
	closeOnce sync.Once

	syncMu     sync.Mutex
	syncSeq    uint64
	syncCancel context.CancelFunc

	// unix nanos of the last Manager.Get
	lastUsed atomic.Int64
}

func newSession(deps *Deps, companyID, companyName string) *Session {
	s := &Session{
		deps:      deps,
		companyID: companyID,
		state:     carts.EmptyState(companyID, companyName),
		inbox:     make(chan func()),
		quit:      make(chan struct{}),
	}
	s.touch(deps.Now())
	go s.loop()
	return s
}

func (s *Session) CompanyID() string { return s.companyID }

func (s *Session) touch(now time.Time) { s.lastUsed.Store(now.UnixNano()) }

func (s *Session) idleSince() time.Time { return time.Unix(0, s.lastUsed.Load()) }

func (s *Session) loop() {
	for {
		select {
		case fn := <-s.inbox:
			fn()
		case <-s.quit:
			return
		}
	}
}

func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.syncMu.Lock()
		if s.syncCancel != nil {
			s.syncCancel()
		}
		s.syncMu.Unlock()
		close(s.quit)
	})
}

// do runs fn on the session goroutine and waits for it to return.
func (s *Session) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	job := func() {
		defer close(done)
		fn()
	}

	select {
	case s.inbox <- job:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.quit:
		return ErrClosed
	}
	<-done
	return nil
}

func (s *Session) dispatch(a carts.Action) []carts.Effect {
	next, effects := carts.Reduce(s.state, a)
	s.state = next
	return effects
}

func (s *Session) save(ctx context.Context, snap carts.Snapshot) (int64, error) {
	return s.deps.Carts.Save(ctx, snap)
}

// load replaces the state with the stored cart. A backend failure leaves an
// empty cart behind; the next save then conflicts and reloads.
func (s *Session) load(ctx context.Context) {
	s.dispatch(carts.Started{Op: carts.OpLoad})

	snap, err := s.deps.Carts.Load(ctx, s.companyID)
	if err != nil {
		s.deps.Logger.Warnw("cart load failed, starting with an empty cart",
			"company_id", s.companyID, "error", err)
		s.deps.Metrics.Operation(string(carts.OpLoad), carts.KindBackend.String())
		snap = nil
	}

	s.dispatch(carts.Loaded{Snapshot: snap})
	s.loaded = true
}

func (s *Session) ensureLoaded(ctx context.Context) {
	if !s.loaded {
		s.load(ctx)
	}
}

// run executes a cart operation on the session goroutine. fn sees the state
// after Started; any error it returns is recorded through Failed.
func (s *Session) run(ctx context.Context, op carts.Op, fn func() error) (View, error) {
	var (
		view  View
		opErr *carts.Error
	)

	err := s.do(ctx, func() {
		s.ensureLoaded(ctx)
		s.dispatch(carts.Started{Op: op})

		if s.companyID == "" {
			opErr = carts.NewValidation(op, carts.ErrMsgCompanyRequired)
		} else if err := fn(); err != nil {
			opErr = classify(op, err)
		}
		if opErr != nil {
			s.dispatch(carts.Failed{Op: op, Err: opErr})
		}
		view = newView(s.state, s.deps.Policy)
	})
	if err != nil {
		opErr = carts.NewBackend(op, err)
	}

	s.observe(op, opErr)
	if opErr != nil {
		return view, opErr
	}
	return view, nil
}

// commit reduces a, performs its effects and keeps the new state only when
// persisting succeeded.
func (s *Session) commit(ctx context.Context, a carts.Action, persist persistFunc) error {
	before := s.state
	next, effects := carts.Reduce(before, a)
	if next.Error != "" {
		return carts.NewValidation(before.Pending, next.Error)
	}

	var (
		publish   []carts.PublishEffect
		version   int64
		persisted bool
	)
	for _, e := range effects {
		switch e := e.(type) {
		case carts.PersistEffect:
			v, err := persist(ctx, e.Snapshot)
			if err != nil {
				if errors.Is(err, carts.ErrVersionConflict) {
					s.load(ctx)
				}
				return err
			}
			version, persisted = v, true
		case carts.PublishEffect:
			publish = append(publish, e)
		}
	}

	s.state = next
	if persisted {
		s.dispatch(carts.Persisted{Version: version})
	}
	for _, e := range publish {
		s.publish(e)
	}
	return nil
}

func (s *Session) publish(e carts.PublishEffect) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.deps.PublishTimeout)
		defer cancel()

		if err := s.deps.Publisher.Publish(ctx, e.Event, s.companyID, e.Payload); err != nil {
			s.deps.Logger.Warnw("publish cart event", "event", e.Event, "company_id", s.companyID, "error", err)
		}
	}()
}

func (s *Session) observe(op carts.Op, err *carts.Error) {
	outcome := "success"
	if err != nil {
		outcome = err.Kind.String()
		if err.Kind == carts.KindBackend {
			s.deps.Logger.Errorw("cart operation failed", "op", op, "company_id", s.companyID, "error", err.Err)
		}
	}
	s.deps.Metrics.Operation(string(op), outcome)
}

func classify(op carts.Op, err error) *carts.Error {
	var ce *carts.Error
	switch {
	case errors.As(err, &ce):
		return ce
	case errors.Is(err, carts.ErrVersionConflict):
		return &carts.Error{Kind: carts.KindBackend, Op: op, Message: errMsgConflict, Err: err}
	case errors.Is(err, orders.ErrEmptyCart):
		return carts.NewValidation(op, carts.ErrMsgCartEmpty)
	case errors.Is(err, pricing.ErrInvalidOffer):
		return carts.NewValidation(op, err.Error())
	default:
		return carts.NewBackend(op, err)
	}
}

func lookupError(op carts.Op, err, notFound error, message string) error {
	if errors.Is(err, notFound) {
		return carts.NewNotFound(op, message)
	}
	return carts.NewBackend(op, err)
}

// Load re-reads the cart from the store.
func (s *Session) Load(ctx context.Context) (View, error) {
	var view View
	err := s.do(ctx, func() {
		s.load(ctx)
		view = newView(s.state, s.deps.Policy)
	})
	if err != nil {
		ce := carts.NewBackend(carts.OpLoad, err)
		s.observe(carts.OpLoad, ce)
		return View{}, ce
	}
	s.observe(carts.OpLoad, nil)
	return view, nil
}

func (s *Session) View(ctx context.Context) (View, error) {
	var view View
	err := s.do(ctx, func() {
		s.ensureLoaded(ctx)
		view = newView(s.state, s.deps.Policy)
	})
	if err != nil {
		return View{}, carts.NewBackend(carts.OpLoad, err)
	}
	return view, nil
}

func (s *Session) rename(ctx context.Context, name string) error {
	return s.do(ctx, func() {
		s.dispatch(carts.CompanySwitched{ID: s.companyID, Name: name})
	})
}

func (s *Session) AddItem(ctx context.Context, productID string, quantity int) (View, error) {
	return s.addItem(ctx, "", productID, quantity)
}

// AddOfferItem adds the product at the partner offer's price.
func (s *Session) AddOfferItem(ctx context.Context, offerID, productID string, quantity int) (View, error) {
	if strings.TrimSpace(offerID) == "" {
		return s.run(ctx, carts.OpAdd, func() error {
			return carts.NewNotFound(carts.OpAdd, errMsgOfferNotFound)
		})
	}
	return s.addItem(ctx, offerID, productID, quantity)
}

func (s *Session) addItem(ctx context.Context, offerID, productID string, quantity int) (View, error) {
	const op = carts.OpAdd

	return s.run(ctx, op, func() error {
		productID = strings.TrimSpace(productID)
		if productID == "" {
			return carts.NewValidation(op, carts.ErrMsgProductIDRequired)
		}
		if quantity <= 0 {
			return carts.NewValidation(op, carts.ErrMsgQuantityPositive)
		}

		p, err := s.deps.Products.GetPricing(ctx, s.companyID, productID)
		if err != nil {
			return lookupError(op, err, products.ErrProductNotFound, errMsgProductNotFound)
		}

		merged := quantity
		if existing, ok := s.state.Item(productID); ok {
			merged += existing.Quantity
		}
		if merged < p.MinimumOrder {
			return carts.NewValidationf(op, "minimum order for %s is %d units", p.Name, p.MinimumOrder)
		}

		item := carts.CartItem{
			ProductID:    p.ProductID,
			SKU:          p.SKU,
			Name:         p.Name,
			Quantity:     quantity,
			RetailPrice:  p.RetailPrice,
			MinimumOrder: p.MinimumOrder,
		}
		item.SetTiers(p.Tiers)

		if offerID != "" {
			offer, err := s.deps.Products.GetOffer(ctx, offerID, productID)
			if err != nil {
				return lookupError(op, err, products.ErrOfferNotFound, errMsgOfferNotFound)
			}
			item.PartnerOffer = offer
		}

		return s.commit(ctx, carts.ItemAdded{Item: item}, s.save)
	})
}

// UpdateQuantity sets a line's quantity; zero removes the line.
func (s *Session) UpdateQuantity(ctx context.Context, productID string, quantity int) (View, error) {
	const op = carts.OpUpdate

	return s.run(ctx, op, func() error {
		if quantity < 0 {
			return carts.NewValidation(op, carts.ErrMsgQuantityNegative)
		}
		item, ok := s.state.Item(productID)
		if !ok {
			return carts.NewNotFound(op, carts.ErrMsgItemNotInCart)
		}
		if quantity > 0 && quantity < item.MinimumOrder {
			return carts.NewValidationf(op, "minimum order for %s is %d units", item.Name, item.MinimumOrder)
		}
		return s.commit(ctx, carts.QuantityUpdated{ProductID: productID, Quantity: quantity}, s.save)
	})
}

func (s *Session) RemoveItem(ctx context.Context, productID string) (View, error) {
	const op = carts.OpRemove

	return s.run(ctx, op, func() error {
		if _, ok := s.state.Item(productID); !ok {
			return carts.NewNotFound(op, carts.ErrMsgItemNotInCart)
		}
		return s.commit(ctx, carts.ItemRemoved{ProductID: productID}, s.save)
	})
}

// Clear empties the cart, applied coupons included.
func (s *Session) Clear(ctx context.Context) (View, error) {
	return s.run(ctx, carts.OpClear, func() error {
		return s.commit(ctx, carts.Cleared{}, s.save)
	})
}

// ApplyCoupon evaluates the coupon against the current subtotal and freezes
// the resulting discount on the cart.
func (s *Session) ApplyCoupon(ctx context.Context, code string) (View, error) {
	const op = carts.OpApplyCoupon

	return s.run(ctx, op, func() error {
		code = strings.TrimSpace(code)
		if code == "" {
			return carts.NewValidation(op, carts.ErrMsgCouponCodeRequired)
		}
		if s.state.HasCouponCode(code) {
			return carts.NewValidation(op, carts.ErrMsgCouponAlreadyApplied)
		}

		c, err := s.deps.Coupons.FindByCode(ctx, code)
		if err != nil {
			return lookupError(op, err, coupons.ErrCouponNotFound, errMsgCouponNotFound)
		}
		if _, dup := s.state.Coupon(c.ID); dup || s.state.HasCouponCode(c.Code) {
			return carts.NewValidation(op, carts.ErrMsgCouponAlreadyApplied)
		}
		if c.MinOrderValue.IsPositive() && s.state.Subtotal.LessThan(c.MinOrderValue) {
			return carts.NewValidationf(op, "coupon %s requires a minimum order of %s", c.Code, c.MinOrderValue.StringFixed(2))
		}

		discount, err := pricing.EvaluateCoupon(c.Type, c.Value, s.state.Subtotal)
		if err != nil {
			return carts.NewValidation(op, err.Error())
		}

		return s.commit(ctx, carts.CouponApplied{Coupon: carts.AppliedCoupon{
			ID:             c.ID,
			Code:           c.Code,
			Type:           c.Type,
			Value:          c.Value,
			DiscountAmount: discount,
			AppliedAt:      s.deps.Now().UTC(),
			Title:          c.Title,
			Description:    c.Description,
		}}, s.save)
	})
}

func (s *Session) RemoveCoupon(ctx context.Context, couponID string) (View, error) {
	const op = carts.OpRemoveCoupon

	return s.run(ctx, op, func() error {
		if _, ok := s.state.Coupon(couponID); !ok {
			return carts.NewNotFound(op, carts.ErrMsgCouponNotApplied)
		}
		return s.commit(ctx, carts.CouponRemoved{CouponID: couponID}, s.save)
	})
}

// CompleteOrder turns the cart into an order and empties it in one unit of
// work.
func (s *Session) CompleteOrder(ctx context.Context) (*orders.Order, View, error) {
	const op = carts.OpCompleteOrder

	var order *orders.Order
	view, err := s.run(ctx, op, func() error {
		if len(s.state.Items) == 0 {
			return carts.NewValidation(op, carts.ErrMsgCartEmpty)
		}
		if s.deps.Checkout == nil || s.deps.Numbers == nil {
			return carts.NewBackend(op, errors.New("checkout is not configured"))
		}

		number, err := s.deps.Numbers.Generate()
		if err != nil {
			return err
		}
		draft := orders.Draft{
			OrderNumber: number,
			Cart:        s.state.Snapshot(),
			Summary:     s.state.Summary(s.deps.Policy),
		}

		completed := carts.OrderCompleted{
			OrderNumber: number,
			Total:       draft.Summary.Total,
			At:          s.deps.Now().UTC(),
		}
		return s.commit(ctx, completed,
			func(ctx context.Context, emptied carts.Snapshot) (int64, error) {
				o, version, err := s.deps.Checkout.PlaceOrder(ctx, draft, emptied)
				if err != nil {
					return 0, err
				}
				order = o
				return version, nil
			})
	})
	if err != nil {
		return nil, view, err
	}
	return order, view, nil
}

func (s *Session) SetSidebarOpen(ctx context.Context, open bool) (View, error) {
	var view View
	err := s.do(ctx, func() {
		s.dispatch(carts.SidebarToggled{Open: open})
		view = newView(s.state, s.deps.Policy)
	})
	if err != nil {
		return View{}, carts.NewBackend(carts.OpLoad, err)
	}
	return view, nil
}
