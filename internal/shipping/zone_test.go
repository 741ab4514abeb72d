package shipping_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/shipping"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func requireAmount(t *testing.T, want float64, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, d(want).Equal(got), "expected %v, got %s", want, got)
}

func jakartaZone() shipping.Zone {
	return shipping.Zone{
		ID:                    "zone-jkt",
		PostalPrefix:          "10",
		BaseRate:              d(50),
		RegionMultiplier:      d(1),
		ExpressMultiplier:     d(2),
		FreeShippingThreshold: d(500),
		Active:                true,
		Tiers: []shipping.Tier{
			{MinWeight: d(5.01), MaxWeight: d(10), Rate: d(40)},
			{MinWeight: d(0), MaxWeight: d(5), Rate: d(20)},
		},
	}
}

func TestPostalKey(t *testing.T) {
	require.Equal(t, "10", shipping.PostalKey(" 10110 "))
	require.Equal(t, "SW", shipping.PostalKey("sw1a 1aa"))
	require.Equal(t, "9", shipping.PostalKey("9"))
	require.Equal(t, "", shipping.PostalKey("  "))
}

func TestSelectZonePrefersMostSpecificPrefix(t *testing.T) {
	zones := []shipping.Zone{
		{ID: "b-broad", PostalPrefix: "1", Active: true},
		{ID: "c-exact", PostalPrefix: "10", Active: true},
		{ID: "a-exact", PostalPrefix: "10", Active: true},
		{ID: "0-inactive", PostalPrefix: "10", Active: false},
		{ID: "other", PostalPrefix: "20", Active: true},
	}
	z, ok := shipping.SelectZone(zones, "10110")
	require.True(t, ok)
	require.Equal(t, "a-exact", z.ID)

	z, ok = shipping.SelectZone(zones, "15000")
	require.True(t, ok)
	require.Equal(t, "b-broad", z.ID)

	_, ok = shipping.SelectZone(zones, "99999")
	require.False(t, ok)
	_, ok = shipping.SelectZone(zones, "")
	require.False(t, ok)
}

func TestWeightCharge(t *testing.T) {
	z := jakartaZone()
	requireAmount(t, 20, z.WeightCharge(d(0), d(10)))
	requireAmount(t, 20, z.WeightCharge(d(5), d(10)))
	requireAmount(t, 40, z.WeightCharge(d(7.5), d(10)))
	// gap between bands and overweight parcels fall back to the heaviest band
	requireAmount(t, 40, z.WeightCharge(d(5.005), d(10)))
	requireAmount(t, 40, z.WeightCharge(d(25), d(10)))

	z.Tiers = nil
	requireAmount(t, 30, z.WeightCharge(d(3), d(10)))
}

func TestComputeWithZone(t *testing.T) {
	z := jakartaZone()
	parcel := shipping.Parcel{Weight: d(4), HandlingFee: d(0), ClassMultiplier: d(1)}

	q := shipping.Compute(&z, shipping.StandardDefaults(), parcel, shipping.MethodStandard)
	requireAmount(t, 70, q.Fee)
	require.Equal(t, "zone-jkt", *q.ZoneID)

	q = shipping.Compute(&z, shipping.StandardDefaults(), parcel, shipping.MethodExpress)
	requireAmount(t, 140, q.Fee)

	parcel.HandlingFee = d(5.5)
	parcel.ClassMultiplier = d(1.25)
	z.RegionMultiplier = d(1.1)
	q = shipping.Compute(&z, shipping.StandardDefaults(), parcel, shipping.MethodStandard)
	// (50 + 5.5 + 20) * 1.1 * 1.25 = 103.8125
	requireAmount(t, 104, q.Fee)
}

func TestComputeWithDefaults(t *testing.T) {
	defaults := shipping.StandardDefaults()
	parcel := shipping.Parcel{Weight: d(2.5), HandlingFee: d(10)}
	q := shipping.Compute(nil, defaults, parcel, shipping.MethodStandard)
	require.Nil(t, q.ZoneID)
	// 50 + 10 + 25, class multiplier defaults to 1
	requireAmount(t, 85, q.Fee)
	requireAmount(t, 1, q.ClassMultiplier)

	q = shipping.Compute(nil, defaults, parcel, shipping.MethodExpress)
	// 85 * 1.5 = 127.5 rounds half up
	requireAmount(t, 128, q.Fee)
}

func TestFreeBySubtotalInclusive(t *testing.T) {
	q := shipping.Quote{FreeShippingThreshold: d(500)}
	require.True(t, q.FreeBySubtotal(d(500)))
	require.True(t, q.FreeBySubtotal(d(500.01)))
	require.False(t, q.FreeBySubtotal(d(499.99)))

	q.FreeShippingThreshold = decimal.Zero
	require.False(t, q.FreeBySubtotal(d(10_000)))
}
