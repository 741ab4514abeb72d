package pricing

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/coupon"
	"github.com/noah-isme/toko-pricing/internal/deal"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

var (
	// ErrNoItems is returned when a request carries no line items.
	ErrNoItems = errors.New("pricing: no line items")
	// ErrInvalidQuantity is returned when a line item quantity is below one.
	ErrInvalidQuantity = errors.New("pricing: quantity must be at least 1")
	// ErrInvalidProductRef is returned when a line item has no product reference.
	ErrInvalidProductRef = errors.New("pricing: line item product reference is empty")
)

// Warning codes surfaced on Totals.
const (
	WarnProductMissing    = "product_missing"
	WarnVariantUnresolved = "variant_unresolved"
	WarnCouponNotFound    = "coupon_not_found"
	WarnCouponIneligible  = "coupon_ineligible"
)

// Reasons reported in Totals.FreeShippingReason.
const (
	FreeShippingBySetting = "site_setting"
	FreeShippingByMinimum = "threshold"
	FreeShippingByCoupon  = "coupon"
)

const paymentCashOnDelivery = "cod"

// PaymentMethod names the payment option chosen at checkout.
type PaymentMethod string

// IsCOD reports whether the payment is cash on delivery.
func (m PaymentMethod) IsCOD() bool {
	return strings.EqualFold(strings.TrimSpace(string(m)), paymentCashOnDelivery)
}

// LineItem is one cart row.
type LineItem struct {
	Product  catalog.Ref  `json:"product"`
	Quantity int          `json:"quantity"`
	Variant  *catalog.Ref `json:"variant,omitempty"`
}

// Address is the delivery destination. Only the postal code affects pricing.
type Address struct {
	PostalCode string `json:"postalCode"`
	City       string `json:"city,omitempty"`
	Province   string `json:"province,omitempty"`
	Country    string `json:"country,omitempty"`
}

type couponSource uint8

const (
	couponNone couponSource = iota
	couponByID
	couponByCode
	couponInline
)

// CouponSelection identifies the coupon a caller wants applied: none, a
// stored coupon by id or by code, or an already loaded document.
type CouponSelection struct {
	source couponSource
	key    string
	doc    coupon.Coupon
}

// CouponByID selects a stored coupon by identifier.
func CouponByID(id string) CouponSelection {
	id = strings.TrimSpace(id)
	if id == "" {
		return CouponSelection{}
	}
	return CouponSelection{source: couponByID, key: id}
}

// CouponByCode selects a stored coupon by its customer-facing code.
func CouponByCode(code string) CouponSelection {
	code = strings.TrimSpace(code)
	if code == "" {
		return CouponSelection{}
	}
	return CouponSelection{source: couponByCode, key: code}
}

// InlineCoupon uses c without a store lookup.
func InlineCoupon(c coupon.Coupon) CouponSelection {
	return CouponSelection{source: couponInline, doc: c}
}

// IsZero reports whether no coupon was selected.
func (s CouponSelection) IsZero() bool { return s.source == couponNone }

// Request carries everything needed to compute totals.
type Request struct {
	Items          []LineItem
	Coupon         CouponSelection
	ShippingMethod shipping.Method
	PaymentMethod  PaymentMethod
	Address        Address
	// Now overrides the evaluation instant. Zero means the calculator clock.
	Now time.Time
}

// PricedLine is a line item with its resolved pricing. It is derived from
// the input line and never shares state with it.
type PricedLine struct {
	Product   deal.PricedProduct `json:"product"`
	Quantity  int                `json:"quantity"`
	VariantID *catalog.ID        `json:"variantId"`
	UnitPrice decimal.Decimal    `json:"unitPrice"`
	LineTotal decimal.Decimal    `json:"lineTotal"`
	TaxRate   decimal.Decimal    `json:"taxRate"`
	Tax       decimal.Decimal    `json:"tax"`
}

// AppliedCoupon records the coupon that contributed to the totals.
type AppliedCoupon struct {
	ID           string          `json:"id"`
	Code         string          `json:"code"`
	Kind         coupon.Kind     `json:"kind"`
	Discount     decimal.Decimal `json:"discount"`
	FreeShipping bool            `json:"freeShipping"`
}

// Warning flags a degradation that did not abort the computation.
type Warning struct {
	Code      string     `json:"code"`
	ProductID catalog.ID `json:"productId,omitempty"`
	Message   string     `json:"message"`
}

// Totals is the result of a pricing computation. Total is never negative.
type Totals struct {
	Subtotal           decimal.Decimal `json:"subtotal"`
	TaxTotal           decimal.Decimal `json:"taxTotal"`
	Discount           decimal.Decimal `json:"discount"`
	ShippingFee        decimal.Decimal `json:"shippingFee"`
	CODFee             decimal.Decimal `json:"codFee"`
	Total              decimal.Decimal `json:"total"`
	Coupon             *AppliedCoupon  `json:"coupon"`
	Shipping           shipping.Quote  `json:"shipping"`
	FreeShippingReason string          `json:"freeShippingReason,omitempty"`
	Items              []PricedLine    `json:"items"`
	Warnings           []Warning       `json:"warnings,omitempty"`
	ComputedAt         time.Time       `json:"computedAt"`
}
