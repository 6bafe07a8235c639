package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Tier is one quantity break of a product's price table.
type Tier struct {
	MinQuantity int             `json:"min_quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// Tiers is a product's escalating price table. Tier 1 always applies; tiers 2
// and 3 are skipped when their MinQuantity is zero.
type Tiers [3]Tier

// hint windows indexed by tier position
var hintWindow = [3]int{0, 5, 10}

func (t Tiers) offered(i int) bool {
	return i == 0 || t[i].MinQuantity > 0
}

// ResolveTier returns the tier number (1..3) and unit price for quantity q:
// the highest offered tier whose threshold is <= q, defaulting to tier 1.
func ResolveTier(t Tiers, q int) (int, decimal.Decimal) {
	tier, price := 1, t[0].UnitPrice
	for i := 1; i < len(t); i++ {
		if !t.offered(i) {
			continue
		}
		if q >= t[i].MinQuantity {
			tier, price = i+1, t[i].UnitPrice
		}
	}
	return tier, price
}

// Hint is an upsell nudge: buying Shortfall more units unlocks Tier.
type Hint struct {
	Tier      int             `json:"tier"`
	Shortfall int             `json:"shortfall"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Savings   decimal.Decimal `json:"savings"`
}

func (h Hint) String() string {
	return fmt.Sprintf("Add %d more to reach tier %d at %s each and save %s",
		h.Shortfall, h.Tier, h.UnitPrice.StringFixed(2), h.Savings.StringFixed(2))
}

// NextTierHint reports whether quantity q is close enough to a better tier to
// nudge the buyer: within 5 units of tier 2 or within 10 units of tier 3.
// Savings are the unit price delta times the target tier's quantity.
func NextTierHint(t Tiers, q int) (Hint, bool) {
	current, price := ResolveTier(t, q)
	for i := current; i < len(t); i++ {
		if !t.offered(i) {
			continue
		}
		short := t[i].MinQuantity - q
		if short <= 0 || short > hintWindow[i] {
			continue
		}
		delta := price.Sub(t[i].UnitPrice)
		if !delta.IsPositive() {
			continue
		}
		return Hint{
			Tier:      i + 1,
			Shortfall: short,
			UnitPrice: t[i].UnitPrice,
			Savings:   Round2(delta.Mul(decimal.NewFromInt(int64(t[i].MinQuantity)))),
		}, true
	}
	return Hint{}, false
}
