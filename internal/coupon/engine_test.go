package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func amount(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func TestComputePercentWithCap(t *testing.T) {
	c := Coupon{Kind: KindPercentage, Value: amount(20)}
	require.True(t, Compute(c, amount(1000)).Equal(amount(200)))

	c.MaxDiscount = decimal.NewNullDecimal(amount(150))
	require.True(t, Compute(c, amount(1000)).Equal(amount(150)))
}

func TestComputeFixedClampedToSubtotal(t *testing.T) {
	c := Coupon{Kind: KindFixed, Value: amount(500)}
	require.True(t, Compute(c, amount(160)).Equal(amount(160)))

	c.Value = amount(-10)
	require.True(t, Compute(c, amount(160)).IsZero())
}

func TestComputeFreeShippingHasNoMonetaryDiscount(t *testing.T) {
	c := Coupon{Kind: "FREE_SHIPPING", Value: amount(30)}
	require.True(t, c.FreeShipping())
	require.True(t, Compute(c, amount(160)).IsZero())
}

func TestValidate(t *testing.T) {
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	limit := 3

	cases := []struct {
		name     string
		coupon   Coupon
		subtotal float64
		want     error
	}{
		{"eligible", Coupon{Active: true, MinCartValue: amount(100)}, 100, nil},
		{"inactive", Coupon{}, 100, ErrInactive},
		{"not started", Coupon{Active: true, StartsAt: &future}, 100, ErrNotStarted},
		{"expired", Coupon{Active: true, ExpiresAt: &past}, 100, ErrExpired},
		{"below minimum", Coupon{Active: true, MinCartValue: amount(100.01)}, 100, ErrMinimumSpendUnmet},
		{"usage exhausted", Coupon{Active: true, UsageLimit: &limit, UsedCount: 3}, 100, ErrUsageLimitReached},
		{"inside window", Coupon{Active: true, StartsAt: &past, ExpiresAt: &future}, 1, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.ErrorIs(t, tc.coupon.Validate(now, amount(tc.subtotal)), tc.want)
		})
	}
}

func TestEvaluateIneligibleYieldsZero(t *testing.T) {
	c := Coupon{Active: true, Kind: KindFixed, Value: amount(50), MinCartValue: amount(200)}
	discount, err := Evaluate(c, now, amount(160))
	require.ErrorIs(t, err, ErrMinimumSpendUnmet)
	require.True(t, discount.IsZero())

	discount, err = Evaluate(c, now, amount(200))
	require.NoError(t, err)
	require.True(t, discount.Equal(amount(50)))
}
