package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/deal"
)

const activeDealsSQL = `
SELECT id, name, is_active, starts_at, ends_at, discount_type, discount_value::text,
       is_global, product_ids, category_ids, subcategory_ids, display_variant
FROM deals
WHERE is_active AND starts_at <= $1 AND ends_at >= $1
ORDER BY id`

// ActiveDeals returns deals whose window contains now. Deals whose discount
// value cannot be parsed are skipped.
func (s *Store) ActiveDeals(ctx context.Context, now time.Time) ([]deal.Deal, error) {
	rows, err := s.db.Query(ctx, activeDealsSQL, now)
	if err != nil {
		return nil, fmt.Errorf("query deals: %w", err)
	}
	defer rows.Close()

	var out []deal.Deal
	for rows.Next() {
		var (
			d                                      deal.Deal
			kind, value                            string
			productIDs, categoryIDs, subcategories []string
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.Active, &d.StartsAt, &d.EndsAt, &kind, &value,
			&d.Global, &productIDs, &categoryIDs, &subcategories, &d.DisplayVariant); err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		d.Kind = deal.Kind(kind)
		v := parseNullDecimal(ctx, "discount_value", d.ID, &value)
		if !v.Valid {
			continue
		}
		d.Value = v.Decimal
		for _, id := range productIDs {
			if ref := catalog.RefOf(id); ref.Valid() {
				d.Products = append(d.Products, ref)
			}
		}
		d.Categories = catalog.NormalizeIDs(categoryIDs)
		d.Subcategories = catalog.NormalizeIDs(subcategories)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deals: %w", err)
	}
	return out, nil
}
