package resilience_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/toko-pricing/internal/resilience"
)

func TestFallbackReturnsValue(t *testing.T) {
	v, degraded := resilience.Fallback(context.Background(), nil, "cod_fee", func(context.Context) (int, error) {
		return 7, nil
	}, 0)
	require.False(t, degraded)
	require.Equal(t, 7, v)
}

func TestFallbackDegradesAndLogs(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())

	v, degraded := resilience.Fallback(ctx, nil, "free_shipping", func(context.Context) (bool, error) {
		return true, errors.New("redis down")
	}, false)
	require.True(t, degraded)
	require.False(t, v)
	require.Contains(t, buf.String(), `"lookup":"free_shipping"`)
	require.Contains(t, buf.String(), `"level":"warn"`)
	require.Contains(t, buf.String(), "redis down")
}

func TestFallbackSkipsFetchWhenOpen(t *testing.T) {
	breaker := resilience.NewBreaker(1, 0.5, time.Hour)
	ctx := context.Background()
	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "", errors.New("boom")
	}

	v, degraded := resilience.Fallback(ctx, breaker, "zone", fetch, "default")
	require.True(t, degraded)
	require.Equal(t, "default", v)
	require.Equal(t, 1, calls)

	v, degraded = resilience.Fallback(ctx, breaker, "zone", fetch, "default")
	require.True(t, degraded)
	require.Equal(t, "default", v)
	require.Equal(t, 1, calls, "open breaker must short-circuit")
}
