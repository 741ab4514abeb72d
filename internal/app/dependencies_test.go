package app_test

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/app"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/resilience"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

func TestBuildWiresPricingGraph(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	defaults := shipping.StandardDefaults()
	defaults.BaseRate = decimal.NewFromInt(75)
	cfg := &config.Config{
		SettingsCacheTTL:          time.Minute,
		DealConcurrency:           4,
		LookupBreakerMinRequests:  3,
		LookupBreakerFailureRatio: 0.5,
		LookupBreakerOpenFor:      time.Second,
		Shipping:                  defaults,
	}

	deps := app.Build(cfg, nil, rdb, zerolog.Nop())

	require.NotNil(t, deps.Calculator)
	require.NotNil(t, deps.Handler)
	require.Same(t, deps.Deals, deps.Calculator.Deals)
	require.Equal(t, 4, deps.Deals.Concurrency)
	require.True(t, decimal.NewFromInt(75).Equal(deps.Calculator.Shipping.BaseRate))
	require.Len(t, deps.Breakers, 2)
	require.Same(t, deps.Breakers[app.BreakerShippingZone], deps.Zones.Breaker)
	require.Same(t, deps.Breakers[app.BreakerSiteSettings], deps.Settings.Breaker)
	require.Equal(t, resilience.Closed, deps.Breakers[app.BreakerShippingZone].State())
}
