package carts

import (
	"strings"

	"solarshop/internal/pricing"

	"github.com/shopspring/decimal"
)

// Op names an operation category of the cart state machine.
type Op string

const (
	OpLoad          Op = "load"
	OpAdd           Op = "add"
	OpUpdate        Op = "update"
	OpRemove        Op = "remove"
	OpClear         Op = "clear"
	OpSync          Op = "sync"
	OpApplyCoupon   Op = "apply_coupon"
	OpRemoveCoupon  Op = "remove_coupon"
	OpCompleteOrder Op = "complete_order"
)

// State is the whole cart of one company context. It is a value: Reduce
// returns a new State and never mutates its input.
type State struct {
	CompanyID   string
	CompanyName string

	Items   map[string]CartItem
	Coupons []AppliedCoupon

	TotalItems     int
	Subtotal       decimal.Decimal
	TotalSavings   decimal.Decimal
	CouponDiscount decimal.Decimal

	Loading     bool
	Pending     Op
	Error       string
	SidebarOpen bool

	// Version counts local data mutations; RemoteVersion is the version of
	// the last snapshot read from or written to the store.
	Version       int64
	RemoteVersion int64
}

func EmptyState(companyID, companyName string) State {
	return State{
		CompanyID:      companyID,
		CompanyName:    companyName,
		Items:          map[string]CartItem{},
		Subtotal:       decimal.Zero,
		TotalSavings:   decimal.Zero,
		CouponDiscount: decimal.Zero,
	}
}

func (s State) clone() State {
	items := make(map[string]CartItem, len(s.Items))
	for k, v := range s.Items {
		items[k] = v
	}
	s.Items = items
	s.Coupons = append([]AppliedCoupon(nil), s.Coupons...)
	return s
}

func (s *State) recompute() {
	lines := make([]pricing.Line, 0, len(s.Items))
	for _, it := range s.Items {
		lines = append(lines, pricing.Line{Quantity: it.Quantity, UnitPrice: it.UnitPrice, RetailPrice: it.RetailPrice})
	}
	t := pricing.Aggregate(lines)
	s.TotalItems = t.TotalItems
	s.Subtotal = t.Subtotal
	s.TotalSavings = t.TotalSavings
}

func (s State) Totals() pricing.Totals {
	return pricing.Totals{TotalItems: s.TotalItems, Subtotal: s.Subtotal, TotalSavings: s.TotalSavings}
}

// ItemList returns the items ordered by product id.
func (s State) ItemList() []CartItem {
	return sortedItems(s.Items)
}

func (s State) Item(productID string) (CartItem, bool) {
	it, ok := s.Items[productID]
	return it, ok
}

func (s State) HasCouponCode(code string) bool {
	for _, c := range s.Coupons {
		if strings.EqualFold(c.Code, code) {
			return true
		}
	}
	return false
}

func (s State) Coupon(id string) (AppliedCoupon, bool) {
	for _, c := range s.Coupons {
		if c.ID == id {
			return c, true
		}
	}
	return AppliedCoupon{}, false
}

func (s State) FreeShipping() bool {
	for _, c := range s.Coupons {
		if c.Type == pricing.CouponFreeShipping {
			return true
		}
	}
	return false
}

func (s State) Summary(p pricing.Policy) pricing.Summary {
	return pricing.Summarize(s.Totals(), s.CouponDiscount, s.FreeShipping(), p)
}

func (s State) Snapshot() Snapshot {
	return Snapshot{
		CompanyID:      s.CompanyID,
		Items:          s.ItemList(),
		Coupons:        append([]AppliedCoupon(nil), s.Coupons...),
		CouponDiscount: s.CouponDiscount,
		Version:        s.RemoteVersion,
	}
}

func (s *State) restore(snap Snapshot) {
	s.Items = make(map[string]CartItem, len(snap.Items))
	for _, it := range snap.Items {
		s.Items[it.ProductID] = it
	}
	s.Coupons = append([]AppliedCoupon(nil), snap.Coupons...)
	s.CouponDiscount = snap.CouponDiscount
	s.RemoteVersion = snap.Version
	s.recompute()
}
