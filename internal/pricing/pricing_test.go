package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func sampleTiers() Tiers {
	return Tiers{
		{MinQuantity: 1, UnitPrice: d("100")},
		{MinQuantity: 10, UnitPrice: d("90")},
		{MinQuantity: 50, UnitPrice: d("80")},
	}
}

func TestResolveTier_thresholds(t *testing.T) {
	tests := []struct {
		q     int
		tier  int
		price string
	}{
		{1, 1, "100"},
		{9, 1, "100"},
		{10, 2, "90"},
		{49, 2, "90"},
		{50, 3, "80"},
		{500, 3, "80"},
	}
	for _, tt := range tests {
		tier, price := ResolveTier(sampleTiers(), tt.q)
		assert.Equalf(t, tt.tier, tier, "q=%d", tt.q)
		assertMoney(t, tt.price, price)
	}
}

func TestResolveTier_belowAllThresholdsDefaultsToTier1(t *testing.T) {
	tiers := Tiers{
		{MinQuantity: 5, UnitPrice: d("12.50")},
		{MinQuantity: 20, UnitPrice: d("11")},
	}
	tier, price := ResolveTier(tiers, 2)
	assert.Equal(t, 1, tier)
	assertMoney(t, "12.50", price)
}

func TestResolveTier_skipsAbsentTiers(t *testing.T) {
	tiers := Tiers{
		{MinQuantity: 1, UnitPrice: d("10")},
		{},
		{MinQuantity: 100, UnitPrice: d("7")},
	}
	tier, price := ResolveTier(tiers, 40)
	assert.Equal(t, 1, tier)
	assertMoney(t, "10", price)

	tier, price = ResolveTier(tiers, 100)
	assert.Equal(t, 3, tier)
	assertMoney(t, "7", price)
}

func TestNextTierHint_withinTier2Window(t *testing.T) {
	h, ok := NextTierHint(sampleTiers(), 6)
	require.True(t, ok)
	assert.Equal(t, 2, h.Tier)
	assert.Equal(t, 4, h.Shortfall)
	assertMoney(t, "100", h.Savings) // (100-90) * 10
	assert.Contains(t, h.String(), "Add 4 more")
}

func TestNextTierHint_outsideWindow(t *testing.T) {
	_, ok := NextTierHint(sampleTiers(), 4)
	assert.False(t, ok)
}

func TestNextTierHint_tier3Window(t *testing.T) {
	h, ok := NextTierHint(sampleTiers(), 40)
	require.True(t, ok)
	assert.Equal(t, 3, h.Tier)
	assert.Equal(t, 10, h.Shortfall)
	assertMoney(t, "500", h.Savings) // (90-80) * 50

	_, ok = NextTierHint(sampleTiers(), 39)
	assert.False(t, ok)
}

func TestNextTierHint_topTierHasNoHint(t *testing.T) {
	_, ok := NextTierHint(sampleTiers(), 50)
	assert.False(t, ok)
}

func TestAggregate_roundsAfterSummation(t *testing.T) {
	lines := []Line{
		{Quantity: 3, UnitPrice: d("0.335"), RetailPrice: d("0.5")},
		{Quantity: 1, UnitPrice: d("0.335"), RetailPrice: d("0.5")},
	}
	got := Aggregate(lines)
	assert.Equal(t, 4, got.TotalItems)
	assertMoney(t, "1.34", got.Subtotal) // per-line rounding would give 1.35
	assertMoney(t, "0.66", got.TotalSavings)
}

func TestRound2_tiesGoTowardPositiveInfinity(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"0.005", "0.01"},
		{"-0.005", "0"},
		{"-0.015", "-0.01"},
		{"-0.016", "-0.02"},
		{"2.675", "2.68"},
		{"1.004", "1"},
		{"-1.255", "-1.25"},
		{"12", "12"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assertMoney(t, tc.want, Round2(d(tc.in)))
		})
	}
}

func TestAggregate_empty(t *testing.T) {
	got := Aggregate(nil)
	assert.Zero(t, got.TotalItems)
	assertMoney(t, "0", got.Subtotal)
	assertMoney(t, "0", got.TotalSavings)
}

func TestEvaluateCoupon(t *testing.T) {
	tests := []struct {
		name     string
		typ      CouponType
		value    string
		subtotal string
		want     string
	}{
		{"percentage", CouponPercentage, "10", "200", "20.00"},
		{"percentage rounds", CouponPercentage, "15", "33.33", "5.00"},
		{"fixed under subtotal", CouponFixedAmount, "25", "200", "25"},
		{"fixed capped at subtotal", CouponFixedAmount, "50", "30", "30.00"},
		{"free shipping", CouponFreeShipping, "0", "200", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvaluateCoupon(tt.typ, d(tt.value), d(tt.subtotal))
			require.NoError(t, err)
			assertMoney(t, tt.want, got)
		})
	}
}

func TestEvaluateCoupon_rejectsBadInput(t *testing.T) {
	_, err := EvaluateCoupon(CouponPercentage, d("101"), d("10"))
	assert.ErrorIs(t, err, ErrPercentageRange)

	_, err = EvaluateCoupon(CouponFixedAmount, d("-1"), d("10"))
	assert.ErrorIs(t, err, ErrNegativeCouponValue)

	_, err = EvaluateCoupon(CouponType("bogo"), d("1"), d("10"))
	assert.ErrorIs(t, err, ErrInvalidCouponType)
}

func TestDiscountLedger_roundTrip(t *testing.T) {
	start := d("7.35")
	amount, err := EvaluateCoupon(CouponPercentage, d("12.5"), d("99.99"))
	require.NoError(t, err)

	after := AddDiscount(start, amount)
	assertMoney(t, "19.85", after)
	assertMoney(t, "7.35", SubtractDiscount(after, amount))
}

func TestSubtractDiscount_floorsAtZero(t *testing.T) {
	assertMoney(t, "0", SubtractDiscount(d("3"), d("5")))
}

func TestApplyOffer(t *testing.T) {
	got, err := ApplyOffer(d("90"), Offer{Type: OfferPercentage, Discount: d("10")})
	require.NoError(t, err)
	assertMoney(t, "81", got)

	got, err = ApplyOffer(d("90"), Offer{Type: OfferFixedAmount, Discount: d("100")})
	require.NoError(t, err)
	assertMoney(t, "0", got)

	_, err = ApplyOffer(d("90"), Offer{Type: "mystery", Discount: d("1")})
	assert.ErrorIs(t, err, ErrInvalidOffer)
}

func TestSummarize_shippingThreshold(t *testing.T) {
	p := DefaultPolicy()

	s := Summarize(Totals{Subtotal: d("1000.00")}, decimal.Zero, false, p)
	assertMoney(t, "50", s.EstimatedShipping)

	s = Summarize(Totals{Subtotal: d("1000.01")}, decimal.Zero, false, p)
	assertMoney(t, "0", s.EstimatedShipping)
}

func TestSummarize_totalKeepsCouponDiscountByDefault(t *testing.T) {
	s := Summarize(Totals{TotalItems: 2, Subtotal: d("20"), TotalSavings: d("10")}, d("2"), false, DefaultPolicy())

	assert.Equal(t, 2, s.ItemCount)
	assertMoney(t, "5", s.EstimatedTax)
	assertMoney(t, "50", s.EstimatedShipping)
	assertMoney(t, "2", s.CouponDiscount)
	assertMoney(t, "75", s.Total)
}

func TestSummarize_policyCorrections(t *testing.T) {
	p := DefaultPolicy()
	p.DeductCoupons = true
	p.HonorFreeShipping = true

	s := Summarize(Totals{Subtotal: d("20")}, d("2"), true, p)
	assertMoney(t, "0", s.EstimatedShipping)
	assertMoney(t, "23", s.Total)
}
