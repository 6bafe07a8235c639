package session

import (
	"solarshop/internal/domain/carts"
	"solarshop/internal/pricing"
)

type Line struct {
	carts.CartItem
	NextTier *pricing.Hint `json:"next_tier,omitempty"`
	Hint     string        `json:"hint,omitempty"`
}

// View is the read model handed to callers after every operation.
type View struct {
	CompanyID   string                `json:"company_id"`
	CompanyName string                `json:"company_name"`
	Items       []Line                `json:"items"`
	Coupons     []carts.AppliedCoupon `json:"coupons"`
	Summary     pricing.Summary       `json:"summary"`
	SidebarOpen bool                  `json:"sidebar_open"`
	Loading     bool                  `json:"loading"`
	Pending     carts.Op              `json:"pending,omitempty"`
	Error       string                `json:"error,omitempty"`
	Version     int64                 `json:"version"`
}

func newView(s carts.State, p pricing.Policy) View {
	items := s.ItemList()
	lines := make([]Line, 0, len(items))
	for _, it := range items {
		l := Line{CartItem: it}
		if h, ok := it.NextTierHint(); ok {
			l.NextTier = &h
			l.Hint = h.String()
		}
		lines = append(lines, l)
	}

	coupons := append([]carts.AppliedCoupon{}, s.Coupons...)

	return View{
		CompanyID:   s.CompanyID,
		CompanyName: s.CompanyName,
		Items:       lines,
		Coupons:     coupons,
		Summary:     s.Summary(p),
		SidebarOpen: s.SidebarOpen,
		Loading:     s.Loading,
		Pending:     s.Pending,
		Error:       s.Error,
		Version:     s.Version,
	}
}
