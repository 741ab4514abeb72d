package shipping

import (
	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// Parcel aggregates the shipping-relevant attributes of a cart.
type Parcel struct {
	Weight          decimal.Decimal
	HandlingFee     decimal.Decimal
	ClassMultiplier decimal.Decimal
}

// Quote is the breakdown of a computed shipping fee.
type Quote struct {
	ZoneID                *string         `json:"zoneId"`
	BaseRate              decimal.Decimal `json:"baseRate"`
	HandlingFee           decimal.Decimal `json:"handlingFee"`
	WeightCharge          decimal.Decimal `json:"weightCharge"`
	RegionMultiplier      decimal.Decimal `json:"regionMultiplier"`
	ClassMultiplier       decimal.Decimal `json:"classMultiplier"`
	ExpressMultiplier     decimal.Decimal `json:"expressMultiplier"`
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
	Fee                   decimal.Decimal `json:"fee"`
}

// Compute prices parcel for the given zone, or for defaults when zone is nil.
// The fee is rounded to a whole amount.
func Compute(zone *Zone, defaults Defaults, parcel Parcel, method Method) Quote {
	q := Quote{
		HandlingFee:     parcel.HandlingFee,
		ClassMultiplier: positiveOr(parcel.ClassMultiplier, one),
	}
	express := defaults.ExpressMultiplier
	if zone != nil {
		id := zone.ID
		q.ZoneID = &id
		q.BaseRate = zone.BaseRate
		q.RegionMultiplier = positiveOr(zone.RegionMultiplier, one)
		q.FreeShippingThreshold = zone.FreeShippingThreshold
		q.WeightCharge = zone.WeightCharge(parcel.Weight, defaults.PerKgRate)
		express = positiveOr(zone.ExpressMultiplier, defaults.ExpressMultiplier)
	} else {
		q.BaseRate = defaults.BaseRate
		q.RegionMultiplier = positiveOr(defaults.RegionMultiplier, one)
		q.FreeShippingThreshold = defaults.FreeShippingThreshold
		q.WeightCharge = defaults.PerKgRate.Mul(parcel.Weight)
	}
	q.ExpressMultiplier = one
	if method == MethodExpress {
		q.ExpressMultiplier = positiveOr(express, one)
	}
	q.Fee = q.BaseRate.Add(q.HandlingFee).Add(q.WeightCharge).
		Mul(q.RegionMultiplier).
		Mul(q.ClassMultiplier).
		Mul(q.ExpressMultiplier).
		Round(0)
	return q
}

// FreeBySubtotal reports whether subtotal reaches the free-shipping threshold.
// A non-positive threshold disables the rule.
func (q Quote) FreeBySubtotal(subtotal decimal.Decimal) bool {
	if !q.FreeShippingThreshold.IsPositive() {
		return false
	}
	return subtotal.GreaterThanOrEqual(q.FreeShippingThreshold)
}

func positiveOr(v, fallback decimal.Decimal) decimal.Decimal {
	if v.IsPositive() {
		return v
	}
	return fallback
}
