package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/toko-pricing/internal/coupon"
)

const couponColumns = `id, code, is_active, starts_at, expires_at, min_cart_value::text,
       discount_type, discount_value::text, max_discount::text, usage_limit, used_count`

const couponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

const couponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE upper(code) = upper($1)`

// CouponByID loads a coupon by identifier.
func (s *Store) CouponByID(ctx context.Context, id string) (coupon.Coupon, error) {
	return s.coupon(ctx, couponByIDSQL, id)
}

// CouponByCode loads a coupon by code, ignoring case.
func (s *Store) CouponByCode(ctx context.Context, code string) (coupon.Coupon, error) {
	return s.coupon(ctx, couponByCodeSQL, code)
}

func (s *Store) coupon(ctx context.Context, query, arg string) (coupon.Coupon, error) {
	var (
		c                    coupon.Coupon
		startsAt, expiresAt  *time.Time
		minCart, kind, value string
		maxDiscount          *string
		usageLimit           *int32
		usedCount            int32
	)
	err := s.db.QueryRow(ctx, query, arg).Scan(&c.ID, &c.Code, &c.Active, &startsAt, &expiresAt,
		&minCart, &kind, &value, &maxDiscount, &usageLimit, &usedCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return coupon.Coupon{}, coupon.ErrNotFound
		}
		return coupon.Coupon{}, fmt.Errorf("get coupon %s: %w", arg, err)
	}
	c.StartsAt = startsAt
	c.ExpiresAt = expiresAt
	c.Kind = coupon.Kind(kind)
	c.UsedCount = int(usedCount)
	if usageLimit != nil {
		limit := int(*usageLimit)
		c.UsageLimit = &limit
	}
	c.MinCartValue = parseDecimal(ctx, "min_cart_value", c.ID, minCart)
	c.Value = parseDecimal(ctx, "discount_value", c.ID, value)
	c.MaxDiscount = parseNullDecimal(ctx, "max_discount", c.ID, maxDiscount)
	return c, nil
}
