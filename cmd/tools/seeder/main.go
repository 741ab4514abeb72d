package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/noah-isme/toko-pricing/internal/app"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/settings"
)

// seedNamespace derives stable ids so reseeding upserts the same rows.
var seedNamespace = uuid.MustParse("5b0b7c8e-2f55-4d1e-9a53-3c2a4f6d8e10")

func seedID(kind, name string) string {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+name)).String()
}

func main() {
	_ = godotenv.Load()
	logger := obs.NewLogger(os.Getenv("OBS_LOG_FORMAT"), os.Getenv("OBS_LOG_LEVEL")).With().Str("tool", "seeder").Logger()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		logger.Fatal().Msg("DATABASE_URL is not set")
	}
	if err := app.Migrate(dbURL, logger); err != nil {
		logger.Fatal().Err(err).Msg("run migrations")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()

	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		steps := []struct {
			name string
			run  func(context.Context, pgx.Tx) error
		}{
			{"catalog", seedCatalog},
			{"deals", seedDeals},
			{"coupons", seedCoupons},
			{"shipping_zones", seedZones},
			{"site_settings", seedSettings},
		}
		for _, step := range steps {
			if err := step.run(ctx, tx); err != nil {
				logger.Error().Err(err).Str("step", step.name).Msg("seed failed")
				return err
			}
			logger.Info().Str("step", step.name).Msg("seeded")
		}
		return nil
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("seeding aborted")
	}
	logger.Info().Msg("seeding completed")
}

func seedCatalog(ctx context.Context, tx pgx.Tx) error {
	categories := []struct{ id, name, parent string }{
		{"electronics", "Electronics", ""},
		{"audio", "Audio", "electronics"},
		{"home", "Home & Living", ""},
		{"kitchen", "Kitchen", "home"},
	}
	for _, c := range categories {
		var parent *string
		if c.parent != "" {
			parent = &c.parent
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO categories (id, name, parent_id) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, parent_id = EXCLUDED.parent_id`,
			c.id, c.name, parent); err != nil {
			return err
		}
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO shipping_classes (id, name, multiplier) VALUES
			('standard', 'Standard', 1),
			('bulky', 'Bulky', 1.25),
			('fragile', 'Fragile', 1.4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, multiplier = EXCLUDED.multiplier`); err != nil {
		return err
	}

	products := []struct {
		slug, title, price, sale, tax, weight, fee, class, category, subcategory string
		variants                                                                 []struct{ name, price string }
	}{
		{slug: "product-a", title: "Product A", price: "100", tax: "10", weight: "2", category: "electronics", subcategory: "audio"},
		{slug: "wireless-headphones", title: "Wireless Headphones", price: "899000", sale: "799000", tax: "11", weight: "0.4", class: "fragile", category: "electronics", subcategory: "audio",
			variants: []struct{ name, price string }{{"Black", ""}, {"Limited Edition", "949000"}}},
		{slug: "standing-fan", title: "Standing Fan", price: "450000", tax: "11", weight: "6.5", fee: "15000", class: "bulky", category: "home"},
		{slug: "chef-knife", title: "Chef Knife", price: "275000", tax: "11", weight: "0.3", category: "home", subcategory: "kitchen"},
	}
	for _, p := range products {
		id := seedID("product", p.slug)
		if _, err := tx.Exec(ctx, `
			INSERT INTO products (id, title, price, sale_price, tax_rate, weight, shipping_fee, shipping_class_id, category_id, subcategory_id, is_active)
			VALUES ($1, $2, $3::numeric, NULLIF($4, '')::numeric, NULLIF($5, '')::numeric, NULLIF($6, '')::numeric,
			        NULLIF($7, '')::numeric, NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), TRUE)
			ON CONFLICT (id) DO UPDATE SET
				title = EXCLUDED.title, price = EXCLUDED.price, sale_price = EXCLUDED.sale_price,
				tax_rate = EXCLUDED.tax_rate, weight = EXCLUDED.weight, shipping_fee = EXCLUDED.shipping_fee,
				shipping_class_id = EXCLUDED.shipping_class_id, category_id = EXCLUDED.category_id,
				subcategory_id = EXCLUDED.subcategory_id, updated_at = now()`,
			id, p.title, p.price, p.sale, p.tax, p.weight, p.fee, p.class, p.category, p.subcategory); err != nil {
			return err
		}
		for i, v := range p.variants {
			if _, err := tx.Exec(ctx, `
				INSERT INTO product_variants (id, product_id, name, price, position)
				VALUES ($1, $2, $3, NULLIF($4, '')::numeric, $5)
				ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, position = EXCLUDED.position`,
				seedID("variant", p.slug+"/"+v.name), id, v.name, v.price, i); err != nil {
				return err
			}
		}
	}
	return nil
}

func seedDeals(ctx context.Context, tx pgx.Tx) error {
	now := time.Now().UTC()
	deals := []struct {
		name, kind, value string
		global            bool
		products          []string
		categories        []string
		starts, ends      time.Time
	}{
		{name: "Twenty percent off everything", kind: "percentage", value: "20", global: true, starts: now.AddDate(0, 0, -1), ends: now.AddDate(0, 1, 0)},
		{name: "Audio week", kind: "fixed", value: "150000", categories: []string{"audio"}, starts: now.AddDate(0, 0, -1), ends: now.AddDate(0, 0, 7)},
		{name: "Fan flat price", kind: "flat", value: "399000", products: []string{seedID("product", "standing-fan")}, starts: now, ends: now.AddDate(0, 0, 14)},
	}
	for _, d := range deals {
		if _, err := tx.Exec(ctx, `
			INSERT INTO deals (id, name, is_active, starts_at, ends_at, discount_type, discount_value, is_global, product_ids, category_ids)
			VALUES ($1, $2, TRUE, $3, $4, $5, $6::numeric, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, starts_at = EXCLUDED.starts_at, ends_at = EXCLUDED.ends_at,
				discount_type = EXCLUDED.discount_type, discount_value = EXCLUDED.discount_value,
				is_global = EXCLUDED.is_global, product_ids = EXCLUDED.product_ids, category_ids = EXCLUDED.category_ids`,
			seedID("deal", d.name), d.name, d.starts, d.ends, d.kind, d.value, d.global, nonNil(d.products), nonNil(d.categories)); err != nil {
			return err
		}
	}
	return nil
}

func seedCoupons(ctx context.Context, tx pgx.Tx) error {
	coupons := []struct {
		code, kind, value, minCart, maxDiscount string
		usageLimit                              *int
	}{
		{code: "HEMAT10", kind: "percentage", value: "10", minCart: "100000", maxDiscount: "50000"},
		{code: "POTONG25K", kind: "fixed", value: "25000", minCart: "200000"},
		{code: "GRATISONGKIR", kind: "free_shipping", minCart: "0", usageLimit: intPtr(500)},
	}
	for _, c := range coupons {
		if _, err := tx.Exec(ctx, `
			INSERT INTO coupons (id, code, is_active, min_cart_value, discount_type, discount_value, max_discount, usage_limit)
			VALUES ($1, $2, TRUE, $3::numeric, $4, COALESCE(NULLIF($5, ''), '0')::numeric, NULLIF($6, '')::numeric, $7)
			ON CONFLICT (id) DO UPDATE SET
				code = EXCLUDED.code, min_cart_value = EXCLUDED.min_cart_value, discount_type = EXCLUDED.discount_type,
				discount_value = EXCLUDED.discount_value, max_discount = EXCLUDED.max_discount, usage_limit = EXCLUDED.usage_limit`,
			seedID("coupon", c.code), c.code, c.minCart, c.kind, c.value, c.maxDiscount, c.usageLimit); err != nil {
			return err
		}
	}
	return nil
}

type tier struct {
	MinWeight float64 `json:"minWeight"`
	MaxWeight float64 `json:"maxWeight"`
	Rate      float64 `json:"rate"`
}

func seedZones(ctx context.Context, tx pgx.Tx) error {
	zones := []struct {
		name, prefix, base, region, express, threshold string
		tiers                                          []tier
	}{
		{"Metro", "1", "50", "1", "1.5", "1000", []tier{{0, 5, 20}, {5.001, 20, 45}}},
		{"Java", "4", "12000", "1.1", "1.6", "500000", []tier{{0, 1, 9000}, {1.001, 5, 18000}, {5.001, 30, 42000}}},
		{"Outer islands", "9", "25000", "1.8", "1.5", "0", nil},
	}
	for _, z := range zones {
		tiers, err := json.Marshal(nonNilTiers(z.tiers))
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO shipping_zones (id, name, postal_prefix, base_rate, region_multiplier, express_multiplier, free_shipping_threshold, tiers, is_active)
			VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7::numeric, $8::jsonb, TRUE)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, postal_prefix = EXCLUDED.postal_prefix, base_rate = EXCLUDED.base_rate,
				region_multiplier = EXCLUDED.region_multiplier, express_multiplier = EXCLUDED.express_multiplier,
				free_shipping_threshold = EXCLUDED.free_shipping_threshold, tiers = EXCLUDED.tiers`,
			seedID("zone", z.name), z.name, z.prefix, z.base, z.region, z.express, z.threshold, string(tiers)); err != nil {
			return err
		}
	}
	return nil
}

func seedSettings(ctx context.Context, tx pgx.Tx) error {
	values := map[string]string{
		settings.KeyFreeShippingEnabled: `false`,
		settings.KeyCODFee:              `"15000"`,
	}
	for key, value := range values {
		if _, err := tx.Exec(ctx, `
			INSERT INTO site_settings (key, value) VALUES ($1, $2::jsonb)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			key, value); err != nil {
			return err
		}
	}
	return nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func nonNilTiers(v []tier) []tier {
	if v == nil {
		return []tier{}
	}
	return v
}

func intPtr(v int) *int { return &v }
