package repo

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/shipping"
)

const zonesForPostalKeySQL = `
SELECT id, name, postal_prefix, base_rate::text, region_multiplier::text,
       express_multiplier::text, free_shipping_threshold::text, tiers, is_active
FROM shipping_zones
WHERE is_active AND postal_prefix <> '' AND $1 LIKE upper(postal_prefix) || '%'
ORDER BY length(postal_prefix) DESC, id`

// ZonesForPostalKey returns active zones whose prefix starts key. Zones with
// an unparseable rate are skipped.
func (s *Store) ZonesForPostalKey(ctx context.Context, key string) ([]shipping.Zone, error) {
	rows, err := s.db.Query(ctx, zonesForPostalKeySQL, key)
	if err != nil {
		return nil, fmt.Errorf("query zones: %w", err)
	}
	defer rows.Close()

	var out []shipping.Zone
	for rows.Next() {
		var (
			z                                shipping.Zone
			base, region, express, threshold string
			tiers                            []byte
		)
		if err := rows.Scan(&z.ID, &z.Name, &z.PostalPrefix, &base, &region, &express, &threshold, &tiers, &z.Active); err != nil {
			return nil, fmt.Errorf("scan zone: %w", err)
		}
		rates := []decimal.NullDecimal{
			parseNullDecimal(ctx, "base_rate", z.ID, &base),
			parseNullDecimal(ctx, "region_multiplier", z.ID, &region),
			parseNullDecimal(ctx, "express_multiplier", z.ID, &express),
			parseNullDecimal(ctx, "free_shipping_threshold", z.ID, &threshold),
		}
		if !allValid(rates) {
			continue
		}
		z.BaseRate = rates[0].Decimal
		z.RegionMultiplier = rates[1].Decimal
		z.ExpressMultiplier = rates[2].Decimal
		z.FreeShippingThreshold = rates[3].Decimal
		if len(tiers) > 0 {
			if err := json.Unmarshal(tiers, &z.Tiers); err != nil {
				return nil, fmt.Errorf("decode zone %s tiers: %w", z.ID, err)
			}
		}
		out = append(out, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate zones: %w", err)
	}
	return out, nil
}

func allValid(values []decimal.NullDecimal) bool {
	for _, v := range values {
		if !v.Valid {
			return false
		}
	}
	return true
}
