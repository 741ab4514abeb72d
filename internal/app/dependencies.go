package app

import (
	validator "github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-pricing/internal/cache"
	"github.com/noah-isme/toko-pricing/internal/config"
	"github.com/noah-isme/toko-pricing/internal/deal"
	"github.com/noah-isme/toko-pricing/internal/pricing"
	"github.com/noah-isme/toko-pricing/internal/repo"
	"github.com/noah-isme/toko-pricing/internal/resilience"
	"github.com/noah-isme/toko-pricing/internal/settings"
)

// Breaker names, also used as telemetry labels.
const (
	BreakerShippingZone = "shipping_zone"
	BreakerSiteSettings = "site_settings"
)

const settingsCachePrefix = "pricing:"

// Dependencies is the wired pricing service graph shared by entrypoints.
type Dependencies struct {
	DB         *pgxpool.Pool
	Redis      *redis.Client
	Validator  *validator.Validate
	Store      *repo.Store
	Deals      *deal.Engine
	Settings   *settings.Provider
	Zones      pricing.ZoneLookup
	Calculator *pricing.Calculator
	Handler    *pricing.Handler
	Breakers   map[string]*resilience.Breaker
}

// Build wires the pricing components on top of the given connections.
func Build(cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client, logger zerolog.Logger) *Dependencies {
	store := repo.New(db)
	breakers := map[string]*resilience.Breaker{
		BreakerShippingZone: newBreaker(cfg, BreakerShippingZone),
		BreakerSiteSettings: newBreaker(cfg, BreakerSiteSettings),
	}
	deals := &deal.Engine{
		Deals:       store,
		Catalog:     store,
		Logger:      logger.With().Str("component", "deal").Logger(),
		Concurrency: cfg.DealConcurrency,
	}
	siteSettings := &settings.Provider{
		Store:   store,
		Cache:   cache.NewJSON(rdb, settingsCachePrefix, cfg.SettingsCacheTTL),
		Breaker: breakers[BreakerSiteSettings],
	}
	zones := pricing.ZoneLookup{Finder: store, Breaker: breakers[BreakerShippingZone]}
	calc := &pricing.Calculator{
		Products: store,
		Deals:    deals,
		Coupons:  store,
		Zones:    zones,
		Settings: siteSettings,
		Shipping: cfg.Shipping,
		Logger:   logger.With().Str("component", "pricing").Logger(),
	}
	v := pricing.NewValidator()
	return &Dependencies{
		DB:         db,
		Redis:      rdb,
		Validator:  v,
		Store:      store,
		Deals:      deals,
		Settings:   siteSettings,
		Zones:      zones,
		Calculator: calc,
		Handler:    pricing.NewHandler(pricing.HandlerConfig{Calculator: calc, Validator: v}),
		Breakers:   breakers,
	}
}

func newBreaker(cfg *config.Config, name string) *resilience.Breaker {
	return resilience.NewBreaker(cfg.LookupBreakerMinRequests, cfg.LookupBreakerFailureRatio, cfg.LookupBreakerOpenFor).WithTarget(name)
}
