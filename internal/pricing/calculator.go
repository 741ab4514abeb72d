package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/common"
	"github.com/noah-isme/toko-pricing/internal/coupon"
	"github.com/noah-isme/toko-pricing/internal/deal"
	"github.com/noah-isme/toko-pricing/internal/obs"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

// ProductStore loads product snapshots. Missing ids are simply absent from
// the result; an error means the lookup itself failed.
type ProductStore interface {
	ProductsByIDs(ctx context.Context, ids []catalog.ID) ([]catalog.Product, error)
}

// CouponStore loads coupons, returning coupon.ErrNotFound when none matches.
type CouponStore interface {
	CouponByID(ctx context.Context, id string) (coupon.Coupon, error)
	CouponByCode(ctx context.Context, code string) (coupon.Coupon, error)
}

// Annotator attaches deal pricing to products.
type Annotator interface {
	Annotate(ctx context.Context, products []catalog.Product, now time.Time) ([]deal.PricedProduct, error)
}

// SiteSettings exposes the best-effort site-wide toggles used in pricing.
type SiteSettings interface {
	FreeShippingEnabled(ctx context.Context) bool
	CODFee(ctx context.Context) decimal.Decimal
}

// ZoneSource resolves the shipping zone for a postal code, nil when none applies.
type ZoneSource interface {
	Zone(ctx context.Context, postalCode string) *shipping.Zone
}

// Calculator computes order totals.
type Calculator struct {
	Products ProductStore
	Deals    Annotator
	Coupons  CouponStore
	Zones    ZoneSource
	Settings SiteSettings
	Shipping shipping.Defaults
	Clock    func() time.Time
	Logger   zerolog.Logger
}

type cartAccumulator struct {
	subtotal        decimal.Decimal
	tax             decimal.Decimal
	weight          decimal.Decimal
	handling        decimal.Decimal
	classMultiplier decimal.Decimal
}

// Compute prices req. Lookups for products, deals and stored coupons must
// succeed; zone and site-setting lookups degrade to defaults.
func (c *Calculator) Compute(ctx context.Context, req Request) (Totals, error) {
	start := time.Now()
	ctx, span := obs.Tracer("pricing").Start(ctx, "pricing.Compute")
	defer span.End()
	ctx = c.logger(ctx).WithContext(ctx)

	totals, err := c.compute(ctx, req)
	outcome := "ok"
	switch {
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidProductRef):
		outcome = "invalid"
	case err != nil:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	default:
		span.SetAttributes(
			attribute.Int("items", len(totals.Items)),
			attribute.String("total", totals.Total.String()),
		)
	}
	if obs.QuotesTotal != nil {
		obs.QuotesTotal.WithLabelValues(outcome).Inc()
	}
	if obs.QuoteDuration != nil {
		obs.QuoteDuration.Observe(obs.DurationMillis(time.Since(start)))
	}
	return totals, err
}

func (c *Calculator) compute(ctx context.Context, req Request) (Totals, error) {
	if c == nil || c.Products == nil || c.Deals == nil {
		return Totals{}, errors.New("pricing calculator not configured")
	}
	if err := validateItems(req.Items); err != nil {
		return Totals{}, err
	}
	now := req.Now
	if now.IsZero() {
		now = c.now()
	}
	log := zerolog.Ctx(ctx)

	priced, err := c.PriceProducts(ctx, productIDs(req.Items), now)
	if err != nil {
		return Totals{}, err
	}
	byID := make(map[catalog.ID]deal.PricedProduct, len(priced))
	for _, p := range priced {
		byID[p.ID] = p
	}

	out := Totals{Items: make([]PricedLine, 0, len(req.Items)), ComputedAt: now}
	acc := cartAccumulator{classMultiplier: decimal.NewFromInt(1)}
	for _, item := range req.Items {
		product, ok := byID[item.Product.ID()]
		if !ok {
			if obs.MissingProductsTotal != nil {
				obs.MissingProductsTotal.Inc()
			}
			log.Warn().Str("product_id", item.Product.ID().String()).Msg("pricing_product_missing")
			out.Warnings = append(out.Warnings, Warning{
				Code:      WarnProductMissing,
				ProductID: item.Product.ID(),
				Message:   "product not found; line skipped",
			})
			continue
		}
		line, warning := priceLine(product, item)
		if warning != nil {
			out.Warnings = append(out.Warnings, *warning)
		}
		acc.add(line)
		out.Items = append(out.Items, line)
	}
	out.Subtotal = common.Round2(acc.subtotal)
	out.TaxTotal = common.Round2(acc.tax)

	applied, warning, err := c.applyCoupon(ctx, req.Coupon, now, out.Subtotal)
	if err != nil {
		return Totals{}, err
	}
	if warning != nil {
		out.Warnings = append(out.Warnings, *warning)
	}
	if applied != nil {
		out.Coupon = applied
		out.Discount = applied.Discount
	}

	method := req.ShippingMethod
	if method == "" {
		method = shipping.MethodStandard
	}
	var zone *shipping.Zone
	if c.Zones != nil {
		zone = c.Zones.Zone(ctx, req.Address.PostalCode)
	}
	out.Shipping = shipping.Compute(zone, c.Shipping, shipping.Parcel{
		Weight:          acc.weight,
		HandlingFee:     acc.handling,
		ClassMultiplier: acc.classMultiplier,
	}, method)
	out.ShippingFee = out.Shipping.Fee
	switch {
	case c.Settings != nil && c.Settings.FreeShippingEnabled(ctx):
		out.FreeShippingReason = FreeShippingBySetting
	case out.Shipping.FreeBySubtotal(out.Subtotal):
		out.FreeShippingReason = FreeShippingByMinimum
	case applied != nil && applied.FreeShipping:
		out.FreeShippingReason = FreeShippingByCoupon
	}
	if out.FreeShippingReason != "" {
		out.ShippingFee = decimal.Zero
	}

	out.CODFee = decimal.Zero
	if req.PaymentMethod.IsCOD() && c.Settings != nil {
		out.CODFee = c.Settings.CODFee(ctx)
	}

	out.Total = common.ClampZero(out.Subtotal.
		Add(out.TaxTotal).
		Sub(out.Discount).
		Add(out.ShippingFee).
		Add(out.CODFee))
	return out, nil
}

// PriceProducts loads ids in one batch and annotates them with deal pricing.
// The result follows the order of ids and omits products that were not found
// or are soft-deleted.
func (c *Calculator) PriceProducts(ctx context.Context, ids []catalog.ID, now time.Time) ([]deal.PricedProduct, error) {
	if c == nil || c.Products == nil || c.Deals == nil {
		return nil, errors.New("pricing calculator not configured")
	}
	if now.IsZero() {
		now = c.now()
	}
	if len(ids) == 0 {
		return []deal.PricedProduct{}, nil
	}
	products, err := c.Products.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	index := make(map[catalog.ID]catalog.Product, len(products))
	for _, p := range products {
		index[p.ID] = p
	}
	ordered := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := index[id]; ok && !p.Deleted {
			ordered = append(ordered, p)
		}
	}
	priced, err := c.Deals.Annotate(ctx, ordered, now)
	if err != nil {
		return nil, fmt.Errorf("annotate deals: %w", err)
	}
	return priced, nil
}

// priceLine resolves the unit price of item. Variants with their own price
// inherit the product's deal as a percentage rather than being matched
// against deal targets.
func priceLine(product deal.PricedProduct, item LineItem) (PricedLine, *Warning) {
	line := PricedLine{
		Product:   product,
		Quantity:  item.Quantity,
		UnitPrice: product.UnitPrice(),
		TaxRate:   product.EffectiveTaxRate(),
	}
	var warning *Warning
	if item.Variant != nil && item.Variant.Valid() {
		variant, ok := product.FindVariant(*item.Variant)
		if ok {
			id := variant.ID
			line.VariantID = &id
			if override := common.PositiveOrNull(variant.Price); override.Valid {
				fraction := product.DiscountFraction()
				line.UnitPrice = common.Round2(override.Decimal.Sub(override.Decimal.Mul(fraction)))
			}
		} else {
			warning = &Warning{
				Code:      WarnVariantUnresolved,
				ProductID: product.ID,
				Message:   fmt.Sprintf("variant %s not found; product price used", item.Variant.ID()),
			}
		}
	}
	qty := decimal.NewFromInt(int64(item.Quantity))
	line.LineTotal = line.UnitPrice.Mul(qty)
	line.Tax = line.LineTotal.Mul(common.Percent(line.TaxRate))
	return line, warning
}

func (a *cartAccumulator) add(line PricedLine) {
	qty := decimal.NewFromInt(int64(line.Quantity))
	a.subtotal = a.subtotal.Add(line.LineTotal)
	a.tax = a.tax.Add(line.Tax)
	a.weight = a.weight.Add(line.Product.ShippingWeight().Mul(qty))
	a.handling = a.handling.Add(line.Product.HandlingFee().Mul(qty))
	if m := line.Product.ClassMultiplier(); m.GreaterThan(a.classMultiplier) {
		a.classMultiplier = m
	}
}

func (c *Calculator) applyCoupon(ctx context.Context, sel CouponSelection, now time.Time, subtotal decimal.Decimal) (*AppliedCoupon, *Warning, error) {
	if sel.IsZero() {
		return nil, nil, nil
	}
	log := zerolog.Ctx(ctx)
	doc, err := c.resolveCoupon(ctx, sel)
	if errors.Is(err, coupon.ErrNotFound) {
		recordCoupon("not_found")
		log.Warn().Str("coupon", sel.key).Msg("pricing_coupon_not_found")
		return nil, &Warning{Code: WarnCouponNotFound, Message: "coupon not found"}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("load coupon: %w", err)
	}
	discount, err := coupon.Evaluate(doc, now, subtotal)
	if err != nil {
		recordCoupon("ineligible")
		log.Info().Str("coupon", doc.Code).Str("reason", err.Error()).Msg("pricing_coupon_rejected")
		return nil, &Warning{Code: WarnCouponIneligible, Message: err.Error()}, nil
	}
	recordCoupon("applied")
	return &AppliedCoupon{
		ID:           doc.ID,
		Code:         doc.Code,
		Kind:         doc.NormalizedKind(),
		Discount:     discount,
		FreeShipping: doc.FreeShipping(),
	}, nil, nil
}

func (c *Calculator) resolveCoupon(ctx context.Context, sel CouponSelection) (coupon.Coupon, error) {
	switch sel.source {
	case couponInline:
		return sel.doc, nil
	case couponByID, couponByCode:
		if c.Coupons == nil {
			return coupon.Coupon{}, errors.New("coupon store not configured")
		}
		if sel.source == couponByID {
			return c.Coupons.CouponByID(ctx, sel.key)
		}
		return c.Coupons.CouponByCode(ctx, sel.key)
	default:
		return coupon.Coupon{}, coupon.ErrNotFound
	}
}

func (c *Calculator) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

// logger prefers the request-scoped logger and falls back to the calculator's.
func (c *Calculator) logger(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l.GetLevel() != zerolog.Disabled {
		return l
	}
	if c == nil {
		nop := zerolog.Nop()
		return &nop
	}
	return &c.Logger
}

func recordCoupon(result string) {
	if obs.CouponOutcomesTotal != nil {
		obs.CouponOutcomesTotal.WithLabelValues(result).Inc()
	}
}

func validateItems(items []LineItem) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	for i, it := range items {
		if !it.Product.Valid() {
			return fmt.Errorf("item %d: %w", i, ErrInvalidProductRef)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("item %d: %w", i, ErrInvalidQuantity)
		}
	}
	return nil
}

func productIDs(items []LineItem) []catalog.ID {
	seen := make(map[catalog.ID]struct{}, len(items))
	ids := make([]catalog.ID, 0, len(items))
	for _, it := range items {
		id := it.Product.ID()
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
