package coupon

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-pricing/internal/common"
)

var (
	// ErrNotFound is returned by stores when no coupon matches the lookup.
	ErrNotFound = errors.New("coupon not found")
	// ErrInactive is returned when the coupon has been switched off.
	ErrInactive = errors.New("coupon not active")
	// ErrNotStarted is returned when the coupon validity window has not opened yet.
	ErrNotStarted = errors.New("coupon not yet valid")
	// ErrExpired is returned when the coupon has already expired.
	ErrExpired = errors.New("coupon expired")
	// ErrMinimumSpendUnmet indicates the cart subtotal did not reach the coupon minimum.
	ErrMinimumSpendUnmet = errors.New("coupon minimum cart value not met")
	// ErrUsageLimitReached indicates the coupon has exhausted its global quota.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// Kind identifies the discount a coupon grants.
type Kind string

const (
	KindPercentage   Kind = "percentage"
	KindFixed        Kind = "fixed"
	KindFreeShipping Kind = "free_shipping"
)

// Coupon captures the runtime constraints of a discount code.
type Coupon struct {
	ID           string              `json:"id"`
	Code         string              `json:"code"`
	Active       bool                `json:"active"`
	StartsAt     *time.Time          `json:"startsAt,omitempty"`
	ExpiresAt    *time.Time          `json:"expiresAt,omitempty"`
	MinCartValue decimal.Decimal     `json:"minCartValue"`
	Kind         Kind                `json:"kind"`
	Value        decimal.Decimal     `json:"value"`
	MaxDiscount  decimal.NullDecimal `json:"maxDiscount"`
	UsageLimit   *int                `json:"usageLimit,omitempty"`
	UsedCount    int                 `json:"usedCount"`
}

// NormalizedKind returns the lower-cased discount kind.
func (c Coupon) NormalizedKind() Kind {
	return Kind(strings.ToLower(strings.TrimSpace(string(c.Kind))))
}

// FreeShipping reports whether the coupon waives shipping.
func (c Coupon) FreeShipping() bool {
	return c.NormalizedKind() == KindFreeShipping
}

// Validate ensures the coupon can be applied at now to a cart whose
// pre-discount subtotal is subtotal.
func (c Coupon) Validate(now time.Time, subtotal decimal.Decimal) error {
	if !c.Active {
		return ErrInactive
	}
	if c.StartsAt != nil && now.Before(*c.StartsAt) {
		return ErrNotStarted
	}
	if c.ExpiresAt != nil && now.After(*c.ExpiresAt) {
		return ErrExpired
	}
	if subtotal.LessThan(c.MinCartValue) {
		return ErrMinimumSpendUnmet
	}
	if c.UsageLimit != nil && *c.UsageLimit >= 0 && c.UsedCount >= *c.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// Compute determines the discount granted on subtotal. The result is
// clamped to [0, subtotal] and rounded to two decimals. Free-shipping
// coupons grant no monetary discount.
func Compute(c Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}
	var discount decimal.Decimal
	switch c.NormalizedKind() {
	case KindPercentage:
		discount = subtotal.Mul(common.Percent(c.Value))
		if limit := common.PositiveOrNull(c.MaxDiscount); limit.Valid && discount.GreaterThan(limit.Decimal) {
			discount = limit.Decimal
		}
	case KindFixed:
		discount = c.Value
	default:
		return decimal.Zero
	}
	discount = common.ClampZero(discount)
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	return common.Round2(discount)
}

// Evaluate validates c and computes its discount. Ineligible coupons yield a
// zero discount together with the reason.
func Evaluate(c Coupon, now time.Time, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if err := c.Validate(now, subtotal); err != nil {
		return decimal.Zero, err
	}
	return Compute(c, subtotal), nil
}
