package settings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/cache"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/resilience"
)

// Setting keys read by the pricing core.
const (
	KeyFreeShippingEnabled = "free_shipping_enabled"
	KeyCODFee              = "cod_fee"
)

// ErrNotFound is returned by stores when a setting has never been configured.
var ErrNotFound = errors.New("setting not found")

// Store reads raw JSON setting values by key.
type Store interface {
	Setting(ctx context.Context, key string) (json.RawMessage, error)
}

type cachedValue struct {
	Found bool            `json:"found"`
	Value json.RawMessage `json:"value,omitempty"`
}

// Provider exposes typed site settings. Every getter degrades to its zero
// default when the store or cache cannot be reached.
type Provider struct {
	Store   Store
	Cache   *cache.JSON
	Breaker *resilience.Breaker
}

// FreeShippingEnabled reports whether the global free-shipping toggle is on.
func (p *Provider) FreeShippingEnabled(ctx context.Context) bool {
	v, _ := resilience.Fallback(ctx, p.breaker(), KeyFreeShippingEnabled, func(ctx context.Context) (bool, error) {
		raw, found, err := p.lookup(ctx, KeyFreeShippingEnabled)
		if err != nil || !found {
			return false, err
		}
		val, err := decode(raw)
		if err != nil {
			return false, err
		}
		return common.ParseFlag(val), nil
	}, false)
	return v
}

// CODFee returns the cash-on-delivery surcharge, zero when absent or invalid.
func (p *Provider) CODFee(ctx context.Context) decimal.Decimal {
	v, _ := resilience.Fallback(ctx, p.breaker(), KeyCODFee, func(ctx context.Context) (decimal.Decimal, error) {
		raw, found, err := p.lookup(ctx, KeyCODFee)
		if err != nil || !found {
			return decimal.Zero, err
		}
		val, err := decode(raw)
		if err != nil {
			return decimal.Zero, err
		}
		fee, ok := common.ParseAmount(val)
		if !ok {
			zerolog.Ctx(ctx).Warn().Str("setting", KeyCODFee).RawJSON("value", raw).Msg("setting_invalid")
			return decimal.Zero, nil
		}
		return common.ClampZero(fee), nil
	}, decimal.Zero)
	return v
}

func (p *Provider) breaker() *resilience.Breaker {
	if p == nil {
		return nil
	}
	return p.Breaker
}

// lookup reads a setting through the cache. Absent settings are cached too.
func (p *Provider) lookup(ctx context.Context, key string) (json.RawMessage, bool, error) {
	if p == nil || p.Store == nil {
		return nil, false, errors.New("settings store not configured")
	}
	var cached cachedValue
	hit, err := p.Cache.Get(ctx, cache.KeySetting(key), &cached)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("setting", key).Msg("setting_cache_read")
	}
	if hit {
		return cached.Value, cached.Found, nil
	}
	raw, err := p.Store.Setting(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		cached = cachedValue{}
	case err != nil:
		return nil, false, fmt.Errorf("load setting %s: %w", key, err)
	default:
		cached = cachedValue{Found: true, Value: raw}
	}
	if err := p.Cache.Set(ctx, cache.KeySetting(key), cached); err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("setting", key).Msg("setting_cache_write")
	}
	return cached.Value, cached.Found, nil
}

func decode(raw json.RawMessage) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode setting: %w", err)
	}
	return v, nil
}
