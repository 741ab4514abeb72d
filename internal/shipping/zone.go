package shipping

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Method is the delivery service level requested at checkout.
type Method string

const (
	MethodStandard Method = "standard"
	MethodExpress  Method = "express"
)

// PostalKeyLength is the number of leading postal-code characters used to match zones.
const PostalKeyLength = 2

// Tier is a weight band with a flat rate. Bounds are inclusive.
type Tier struct {
	MinWeight decimal.Decimal `json:"minWeight"`
	MaxWeight decimal.Decimal `json:"maxWeight"`
	Rate      decimal.Decimal `json:"rate"`
}

// Contains reports whether weight falls inside the band.
func (t Tier) Contains(weight decimal.Decimal) bool {
	return weight.GreaterThanOrEqual(t.MinWeight) && weight.LessThanOrEqual(t.MaxWeight)
}

// Zone groups postal codes sharing a rate card.
type Zone struct {
	ID                    string          `json:"id"`
	Name                  string          `json:"name"`
	PostalPrefix          string          `json:"postalPrefix"`
	BaseRate              decimal.Decimal `json:"baseRate"`
	RegionMultiplier      decimal.Decimal `json:"regionMultiplier"`
	ExpressMultiplier     decimal.Decimal `json:"expressMultiplier"`
	FreeShippingThreshold decimal.Decimal `json:"freeShippingThreshold"`
	Active                bool            `json:"active"`
	Tiers                 []Tier          `json:"tiers"`
}

// ZoneFinder returns active zones whose prefix matches the postal key.
type ZoneFinder interface {
	ZonesForPostalKey(ctx context.Context, key string) ([]Zone, error)
}

// Defaults are the rates used when no zone matches.
type Defaults struct {
	BaseRate              decimal.Decimal
	RegionMultiplier      decimal.Decimal
	ExpressMultiplier     decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	PerKgRate             decimal.Decimal
}

// StandardDefaults returns the built-in system rates.
func StandardDefaults() Defaults {
	return Defaults{
		BaseRate:              decimal.NewFromInt(50),
		RegionMultiplier:      decimal.NewFromInt(1),
		ExpressMultiplier:     decimal.NewFromFloat(1.5),
		FreeShippingThreshold: decimal.NewFromInt(1000),
		PerKgRate:             decimal.NewFromInt(10),
	}
}

// PostalKey returns the upper-cased leading characters of a postal code.
func PostalKey(postalCode string) string {
	trimmed := strings.ToUpper(strings.TrimSpace(postalCode))
	if utf8.RuneCountInString(trimmed) <= PostalKeyLength {
		return trimmed
	}
	return string([]rune(trimmed)[:PostalKeyLength])
}

// SelectZone picks the zone for postalCode: among active zones whose prefix
// starts the postal key, the longest prefix wins and ties go to the lowest ID.
func SelectZone(zones []Zone, postalCode string) (Zone, bool) {
	key := PostalKey(postalCode)
	if key == "" {
		return Zone{}, false
	}
	candidates := make([]Zone, 0, len(zones))
	for _, z := range zones {
		prefix := strings.ToUpper(strings.TrimSpace(z.PostalPrefix))
		if !z.Active || prefix == "" || !strings.HasPrefix(key, prefix) {
			continue
		}
		candidates = append(candidates, z)
	}
	if len(candidates) == 0 {
		return Zone{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		li, lj := len(strings.TrimSpace(candidates[i].PostalPrefix)), len(strings.TrimSpace(candidates[j].PostalPrefix))
		if li != lj {
			return li > lj
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0], true
}

// WeightCharge returns the tier rate for weight. When no band contains the
// weight the band with the highest minimum weight is used as a ceiling. A
// zone without tiers falls back to perKg × weight.
func (z Zone) WeightCharge(weight, perKg decimal.Decimal) decimal.Decimal {
	if len(z.Tiers) == 0 {
		return perKg.Mul(weight)
	}
	tiers := append([]Tier(nil), z.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool { return tiers[i].MinWeight.LessThan(tiers[j].MinWeight) })
	for _, t := range tiers {
		if t.Contains(weight) {
			return t.Rate
		}
	}
	return tiers[len(tiers)-1].Rate
}
