package carts

import (
	"time"

	"solarshop/internal/pricing"

	"github.com/shopspring/decimal"
)

// Action is an input to Reduce.
type Action interface {
	action()
}

type (
	// Started moves the cart into the loading state for op.
	Started struct{ Op Op }
	// Failed returns to idle keeping the previous data and recording Err.
	Failed struct {
		Op  Op
		Err error
	}
	// Abandoned returns to idle without touching data or the error.
	Abandoned struct{ Op Op }

	CompanySwitched struct{ ID, Name string }
	Loaded          struct{ Snapshot *Snapshot }
	// Synced carries a background re-read. BaseVersion is the local Version
	// at the moment the read started. A nil Snapshot means the stored cart
	// is gone.
	Synced struct {
		Snapshot    *Snapshot
		BaseVersion int64
	}
	ItemAdded       struct{ Item CartItem }
	QuantityUpdated struct {
		ProductID string
		Quantity  int
	}
	ItemRemoved    struct{ ProductID string }
	Cleared        struct{}
	CouponApplied  struct{ Coupon AppliedCoupon }
	CouponRemoved  struct{ CouponID string }
	OrderCompleted struct {
		OrderNumber string
		Total       decimal.Decimal
		At          time.Time
	}
	Persisted      struct{ Version int64 }
	SidebarToggled struct{ Open bool }
)

func (Started) action()         {}
func (Failed) action()          {}
func (Abandoned) action()       {}
func (CompanySwitched) action() {}
func (Loaded) action()          {}
func (Synced) action()          {}
func (ItemAdded) action()       {}
func (QuantityUpdated) action() {}
func (ItemRemoved) action()     {}
func (Cleared) action()         {}
func (CouponApplied) action()   {}
func (CouponRemoved) action()   {}
func (OrderCompleted) action()  {}
func (Persisted) action()       {}
func (SidebarToggled) action()  {}

// Effect is work the caller must perform after a transition.
type Effect interface {
	effect()
}

type PersistEffect struct{ Snapshot Snapshot }

type PublishEffect struct {
	Event   string
	Payload map[string]any
}

func (PersistEffect) effect() {}
func (PublishEffect) effect() {}

const (
	EventCouponApplied  = "cart.coupon_applied"
	EventOrderCompleted = "cart.order_completed"
)

// Reduce applies a to s and returns the next state with the effects the
// transition requires. It is pure: s is never modified.
func Reduce(s State, a Action) (State, []Effect) {
	next := s.clone()

	switch a := a.(type) {
	case Started:
		next.Loading = true
		next.Pending = a.Op
		next.Error = ""
		return next, nil

	case Failed:
		next.Loading = false
		next.Pending = ""
		if a.Err != nil {
			next.Error = a.Err.Error()
		}
		return next, nil

	case Abandoned:
		return settle(next), nil

	case CompanySwitched:
		if a.ID == s.CompanyID {
			next.CompanyName = a.Name
			return next, nil
		}
		empty := EmptyState(a.ID, a.Name)
		empty.SidebarOpen = s.SidebarOpen
		empty.Version = s.Version + 1
		return empty, nil

	case Loaded:
		if a.Snapshot != nil {
			next.restore(*a.Snapshot)
		} else {
			next.restore(Snapshot{CouponDiscount: decimal.Zero})
		}
		next.Version++
		return settle(next), nil

	case Synced:
		if s.Version != a.BaseVersion {
			return settle(next), nil
		}
		if a.Snapshot == nil {
			// never stored, keep the local lines
			if s.RemoteVersion == 0 {
				return settle(next), nil
			}
			next.restore(Snapshot{CouponDiscount: decimal.Zero})
			next.Version++
			return settle(next), nil
		}
		if a.Snapshot.Version < s.RemoteVersion {
			return settle(next), nil
		}
		next.restore(*a.Snapshot)
		next.Version++
		return settle(next), nil

	case ItemAdded:
		item := a.Item
		if existing, ok := next.Items[item.ProductID]; ok {
			item.Quantity += existing.Quantity
			if item.PartnerOffer == nil {
				item.PartnerOffer = existing.PartnerOffer
			}
		}
		if err := item.Reprice(); err != nil {
			return Reduce(s, Failed{Op: OpAdd, Err: err})
		}
		next.Items[item.ProductID] = item
		return mutated(next)

	case QuantityUpdated:
		item, ok := next.Items[a.ProductID]
		if !ok {
			return settle(next), nil
		}
		if a.Quantity <= 0 {
			delete(next.Items, a.ProductID)
			return mutated(next)
		}
		item.Quantity = a.Quantity
		if err := item.Reprice(); err != nil {
			return Reduce(s, Failed{Op: OpUpdate, Err: err})
		}
		next.Items[a.ProductID] = item
		return mutated(next)

	case ItemRemoved:
		delete(next.Items, a.ProductID)
		return mutated(next)

	case Cleared:
		reset(&next)
		return mutated(next)

	case CouponApplied:
		next.Coupons = append(next.Coupons, a.Coupon)
		next.CouponDiscount = pricing.AddDiscount(next.CouponDiscount, a.Coupon.DiscountAmount)
		next, effects := mutated(next)
		return next, append(effects, PublishEffect{
			Event: EventCouponApplied,
			Payload: map[string]any{
				"company_id":      next.CompanyID,
				"coupon_id":       a.Coupon.ID,
				"code":            a.Coupon.Code,
				"discount_amount": a.Coupon.DiscountAmount,
			},
		})

	case CouponRemoved:
		kept := next.Coupons[:0]
		for _, c := range next.Coupons {
			if c.ID == a.CouponID {
				next.CouponDiscount = pricing.SubtractDiscount(next.CouponDiscount, c.DiscountAmount)
				continue
			}
			kept = append(kept, c)
		}
		next.Coupons = kept
		return mutated(next)

	case OrderCompleted:
		reset(&next)
		next, effects := mutated(next)
		return next, append(effects, PublishEffect{
			Event: EventOrderCompleted,
			Payload: map[string]any{
				"company_id":   next.CompanyID,
				"order_number": a.OrderNumber,
				"total":        a.Total,
				"completed_at": a.At,
			},
		})

	case Persisted:
		next.RemoteVersion = a.Version
		return next, nil

	case SidebarToggled:
		next.SidebarOpen = a.Open
		return next, nil
	}

	return next, nil
}

func reset(s *State) {
	s.Items = map[string]CartItem{}
	s.Coupons = nil
	s.CouponDiscount = decimal.Zero
	s.recompute()
}

func settle(s State) State {
	s.Loading = false
	s.Pending = ""
	s.Error = ""
	return s
}

func mutated(s State) (State, []Effect) {
	s.recompute()
	s.Version++
	s = settle(s)
	return s, []Effect{PersistEffect{Snapshot: s.Snapshot()}}
}
