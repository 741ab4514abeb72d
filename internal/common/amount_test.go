package common

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestRound2HalfUp(t *testing.T) {
	require.Equal(t, "10.13", Round2(decimal.RequireFromString("10.125")).String())
	require.Equal(t, "10.12", Round2(decimal.RequireFromString("10.1249")).String())
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   any
		want string
		ok   bool
	}{
		{float64(15000), "15000", true},
		{json.Number("12.5"), "12.5", true},
		{" 7.25 ", "7.25", true},
		{"", "0", false},
		{"abc", "0", false},
		{true, "0", false},
		{nil, "0", false},
	}
	for _, tc := range cases {
		got, ok := ParseAmount(tc.in)
		require.Equal(t, tc.ok, ok, "%v", tc.in)
		if ok {
			require.True(t, decimal.RequireFromString(tc.want).Equal(got), "%v", tc.in)
		}
	}
}

func TestParseFlag(t *testing.T) {
	require.True(t, ParseFlag(true))
	require.True(t, ParseFlag("true"))
	require.True(t, ParseFlag(float64(1)))
	require.True(t, ParseFlag(json.Number("1")))
	require.False(t, ParseFlag("nope"))
	require.False(t, ParseFlag(float64(0)))
	require.False(t, ParseFlag(nil))
}

func TestNullableHelpers(t *testing.T) {
	require.True(t, OrZero(decimal.NullDecimal{}).IsZero())
	require.False(t, PositiveOrNull(decimal.NewNullDecimal(decimal.Zero)).Valid)
	require.True(t, PositiveOrNull(decimal.NewNullDecimal(decimal.NewFromInt(3))).Valid)
	require.True(t, ClampZero(decimal.NewFromInt(-4)).IsZero())
}
