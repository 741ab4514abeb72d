package catalog

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/common"
)

// VariantDelimiter separates the variant id from option suffixes in
// composite variant references such as "<variantID>_red-xl".
const VariantDelimiter = "_"

// ShippingClass scales shipping cost for products that are bulky or fragile.
type ShippingClass struct {
	ID         ID              `json:"id"`
	Name       string          `json:"name"`
	Multiplier decimal.Decimal `json:"multiplier"`
}

// Variant is a purchasable option of a product with an optional price override.
type Variant struct {
	ID    ID                  `json:"id"`
	Name  string              `json:"name"`
	Price decimal.NullDecimal `json:"price"`
}

// Product is the pricing snapshot of a catalog product.
type Product struct {
	ID            ID                  `json:"id"`
	Title         string              `json:"title"`
	Price         decimal.Decimal     `json:"price"`
	SalePrice     decimal.NullDecimal `json:"salePrice"`
	TaxRate       decimal.NullDecimal `json:"taxRate"`
	Weight        decimal.NullDecimal `json:"weight"`
	ShippingFee   decimal.NullDecimal `json:"shippingFee"`
	ShippingClass *ShippingClass      `json:"shippingClass,omitempty"`
	CategoryID    ID                  `json:"categoryId,omitempty"`
	SubcategoryID ID                  `json:"subcategoryId,omitempty"`
	Active        bool                `json:"active"`
	Deleted       bool                `json:"deleted"`
	Variants      []Variant           `json:"variants,omitempty"`
}

// BasePrice returns the sale price when set, otherwise the list price.
func (p Product) BasePrice() decimal.Decimal {
	if sale := common.PositiveOrNull(p.SalePrice); sale.Valid {
		return sale.Decimal
	}
	return p.Price
}

// EffectiveTaxRate returns the tax percentage, or zero when absent or not positive.
func (p Product) EffectiveTaxRate() decimal.Decimal {
	return common.OrZero(common.PositiveOrNull(p.TaxRate))
}

// ShippingWeight returns the weight, treating absent or negative values as zero.
func (p Product) ShippingWeight() decimal.Decimal {
	return common.ClampZero(common.OrZero(p.Weight))
}

// HandlingFee returns the per-unit shipping handling fee.
func (p Product) HandlingFee() decimal.Decimal {
	return common.ClampZero(common.OrZero(p.ShippingFee))
}

// ClassMultiplier returns the shipping class multiplier, defaulting to 1.
func (p Product) ClassMultiplier() decimal.Decimal {
	if p.ShippingClass == nil || !p.ShippingClass.Multiplier.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return p.ShippingClass.Multiplier
}

// FindVariant resolves ref against the product's variants. Bare identifiers
// are matched directly; composite identifiers are matched on the part before
// the first VariantDelimiter.
func (p Product) FindVariant(ref Ref) (Variant, bool) {
	if !ref.Valid() || len(p.Variants) == 0 {
		return Variant{}, false
	}
	if v, ok := p.variantByID(ref.ID()); ok {
		return v, true
	}
	head, _, found := strings.Cut(ref.ID().String(), VariantDelimiter)
	if !found {
		return Variant{}, false
	}
	return p.variantByID(NormalizeID(head))
}

func (p Product) variantByID(id ID) (Variant, bool) {
	if id.Empty() {
		return Variant{}, false
	}
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}
