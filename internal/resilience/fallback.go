package resilience

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/obs"
)

// Fallback runs fetch and returns its value, or def when fetch fails or the
// breaker is open. degraded reports whether def was returned because of a
// failure. The failure is logged as a warning through the context logger and
// counted per lookup name; it is never returned to the caller.
func Fallback[T any](ctx context.Context, b *Breaker, lookup string, fetch func(context.Context) (T, error), def T) (value T, degraded bool) {
	if b != nil && !b.Allow(ctx) {
		BreakerRejectedTotal.WithLabelValues(b.Target()).Inc()
		degrade(ctx, lookup, ErrOpenCircuit)
		return def, true
	}
	v, err := fetch(ctx)
	if b != nil {
		b.Report(ctx, err == nil)
	}
	if err != nil {
		degrade(ctx, lookup, err)
		return def, true
	}
	return v, false
}

func degrade(ctx context.Context, lookup string, err error) {
	if obs.DegradedLookupsTotal != nil {
		obs.DegradedLookupsTotal.WithLabelValues(lookup).Inc()
	}
	zerolog.Ctx(ctx).Warn().Err(err).Str("lookup", lookup).Msg("lookup_degraded")
}
