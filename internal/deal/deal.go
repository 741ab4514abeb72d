package deal

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/common"
)

// Kind identifies how a deal discounts a price.
type Kind string

const (
	KindPercentage Kind = "percentage"
	KindFixed      Kind = "fixed"
	KindFlat       Kind = "flat"
)

// Deal is a time-bounded promotional discount.
type Deal struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Active         bool            `json:"active"`
	StartsAt       time.Time       `json:"startsAt"`
	EndsAt         time.Time       `json:"endsAt"`
	Kind           Kind            `json:"kind"`
	Value          decimal.Decimal `json:"value"`
	Global         bool            `json:"global"`
	Products       []catalog.Ref   `json:"products,omitempty"`
	Categories     []catalog.ID    `json:"categories,omitempty"`
	Subcategories  []catalog.ID    `json:"subcategories,omitempty"`
	DisplayVariant string          `json:"displayVariant,omitempty"`
}

// IsActiveAt reports whether the deal is switched on and now falls within
// [StartsAt, EndsAt], both ends inclusive.
func (d Deal) IsActiveAt(now time.Time) bool {
	if !d.Active {
		return false
	}
	return !now.Before(d.StartsAt) && !now.After(d.EndsAt)
}

// Price applies the discount to base and rounds to two decimals.
// Unknown kinds leave the price unchanged.
func Price(kind Kind, value, base decimal.Decimal) decimal.Decimal {
	switch Kind(strings.ToLower(string(kind))) {
	case KindPercentage:
		return common.Round2(base.Sub(base.Mul(common.Percent(value))))
	case KindFixed, KindFlat:
		return common.Round2(common.ClampZero(base.Sub(value)))
	default:
		return common.Round2(base)
	}
}

// TargetSet holds the product ids a non-global deal applies to. A nil set on
// a global deal means every product.
type TargetSet map[catalog.ID]struct{}

// Has reports membership.
func (s TargetSet) Has(id catalog.ID) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[id]
	return ok
}

// Affects reports whether d applies to productID given its resolved targets.
func Affects(d Deal, targets TargetSet, productID catalog.ID) bool {
	if d.Global {
		return true
	}
	return targets.Has(productID)
}

// Pricing is the deal annotation attached to a product.
type Pricing struct {
	OriginalPrice      decimal.Decimal     `json:"originalPrice"`
	DealPrice          decimal.NullDecimal `json:"dealPrice"`
	AppliedDealID      *string             `json:"appliedDealId"`
	AppliedDealVariant *string             `json:"appliedDealVariant"`
}

// UnitPrice returns the deal price when present, otherwise the original price.
func (p Pricing) UnitPrice() decimal.Decimal {
	if p.DealPrice.Valid {
		return p.DealPrice.Decimal
	}
	return p.OriginalPrice
}

// DiscountFraction returns (original-deal)/original, or zero without a deal.
func (p Pricing) DiscountFraction() decimal.Decimal {
	if !p.DealPrice.Valid || !p.OriginalPrice.IsPositive() {
		return decimal.Zero
	}
	return p.OriginalPrice.Sub(p.DealPrice.Decimal).Div(p.OriginalPrice)
}

// PricedProduct is a product snapshot together with its deal annotation.
type PricedProduct struct {
	catalog.Product
	Pricing
}

// Best picks the deal yielding the strictly lowest price for product among
// deals, which must already be in their tie-break order. The first deal to
// reach a given price keeps it.
func Best(product catalog.Product, deals []Deal, targets map[string]TargetSet) Pricing {
	original := product.BasePrice()
	out := Pricing{OriginalPrice: original}
	if !original.IsPositive() {
		return out
	}
	best := original
	var winner *Deal
	for i := range deals {
		d := deals[i]
		if !Affects(d, targets[d.ID], product.ID) {
			continue
		}
		candidate := Price(d.Kind, d.Value, original)
		if candidate.LessThan(best) {
			best = candidate
			winner = &deals[i]
		}
	}
	if winner == nil {
		return out
	}
	id := winner.ID
	out.DealPrice = decimal.NewNullDecimal(best)
	out.AppliedDealID = &id
	if winner.DisplayVariant != "" {
		variant := winner.DisplayVariant
		out.AppliedDealVariant = &variant
	}
	return out
}
