package repo

import (
	"context"
	"fmt"

	"github.com/noah-isme/toko-pricing/internal/catalog"
)

const productsByIDsSQL = `
SELECT p.id, p.title, p.price::text, p.sale_price::text, p.tax_rate::text,
       p.weight::text, p.shipping_fee::text, p.category_id, p.subcategory_id,
       p.is_active, p.deleted_at IS NOT NULL,
       sc.id, sc.name, sc.multiplier::text
FROM products p
LEFT JOIN shipping_classes sc ON sc.id = p.shipping_class_id
WHERE p.id = ANY($1)`

const variantsByProductsSQL = `
SELECT id, product_id, name, price::text
FROM product_variants
WHERE product_id = ANY($1)
ORDER BY product_id, position, id`

const productIDsByCategoriesSQL = `
SELECT id FROM products
WHERE category_id = ANY($1) AND is_active AND deleted_at IS NULL`

const productIDsBySubcategoriesSQL = `
SELECT id FROM products
WHERE subcategory_id = ANY($1) AND is_active AND deleted_at IS NULL`

// ProductsByIDs loads product snapshots with their variants and shipping class.
// Ids with no row are absent from the result.
func (s *Store) ProductsByIDs(ctx context.Context, ids []catalog.ID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := idStrings(ids)
	rows, err := s.db.Query(ctx, productsByIDsSQL, keys)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	var products []catalog.Product
	index := make(map[catalog.ID]int, len(ids))
	for rows.Next() {
		var (
			p                                   catalog.Product
			id, price                           string
			sale, tax, weight, fee              *string
			category, subcategory               *string
			classID, className, classMultiplier *string
		)
		if err := rows.Scan(&id, &p.Title, &price, &sale, &tax, &weight, &fee, &category, &subcategory,
			&p.Active, &p.Deleted, &classID, &className, &classMultiplier); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		p.ID = catalog.NormalizeID(id)
		p.CategoryID = catalog.NormalizeID(derefString(category))
		p.SubcategoryID = catalog.NormalizeID(derefString(subcategory))
		p.Price = parseDecimal(ctx, "price", id, price)
		p.SalePrice = parseNullDecimal(ctx, "sale_price", id, sale)
		p.TaxRate = parseNullDecimal(ctx, "tax_rate", id, tax)
		p.Weight = parseNullDecimal(ctx, "weight", id, weight)
		p.ShippingFee = parseNullDecimal(ctx, "shipping_fee", id, fee)
		if classID != nil {
			class := &catalog.ShippingClass{ID: catalog.NormalizeID(*classID), Name: derefString(className)}
			class.Multiplier = parseNullDecimal(ctx, "shipping_class multiplier", id, classMultiplier).Decimal
			p.ShippingClass = class
		}
		index[p.ID] = len(products)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	if len(products) == 0 {
		return products, nil
	}
	if err := s.attachVariants(ctx, products, index); err != nil {
		return nil, err
	}
	return products, nil
}

func (s *Store) attachVariants(ctx context.Context, products []catalog.Product, index map[catalog.ID]int) error {
	keys := make([]string, 0, len(products))
	for _, p := range products {
		keys = append(keys, p.ID.String())
	}
	rows, err := s.db.Query(ctx, variantsByProductsSQL, keys)
	if err != nil {
		return fmt.Errorf("query variants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			v             catalog.Variant
			id, productID string
			price         *string
		)
		if err := rows.Scan(&id, &productID, &v.Name, &price); err != nil {
			return fmt.Errorf("scan variant: %w", err)
		}
		v.ID = catalog.NormalizeID(id)
		v.Price = parseNullDecimal(ctx, "variant price", id, price)
		if i, ok := index[catalog.NormalizeID(productID)]; ok {
			products[i].Variants = append(products[i].Variants, v)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate variants: %w", err)
	}
	return nil
}

// ProductIDsByCategories lists active, non-deleted products in any of the categories.
func (s *Store) ProductIDsByCategories(ctx context.Context, categoryIDs []catalog.ID) ([]catalog.ID, error) {
	return s.productIDs(ctx, productIDsByCategoriesSQL, categoryIDs)
}

// ProductIDsBySubcategories lists active, non-deleted products in any of the subcategories.
func (s *Store) ProductIDsBySubcategories(ctx context.Context, subcategoryIDs []catalog.ID) ([]catalog.ID, error) {
	return s.productIDs(ctx, productIDsBySubcategoriesSQL, subcategoryIDs)
}

func (s *Store) productIDs(ctx context.Context, query string, filter []catalog.ID) ([]catalog.ID, error) {
	if len(filter) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, query, idStrings(filter))
	if err != nil {
		return nil, fmt.Errorf("query product ids: %w", err)
	}
	defer rows.Close()
	var out []catalog.ID
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan product id: %w", err)
		}
		out = append(out, catalog.NormalizeID(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product ids: %w", err)
	}
	return out, nil
}

func idStrings(ids []catalog.ID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !id.Empty() {
			out = append(out, id.String())
		}
	}
	return out
}
