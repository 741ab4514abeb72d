package pricing

import (
	"context"

	"github.com/noah-isme/toko-pricing/internal/resilience"
	"github.com/noah-isme/toko-pricing/internal/shipping"
)

const lookupShippingZone = "shipping_zone"

// ZoneLookup resolves shipping zones through a finder, degrading to no zone
// when the finder fails so that configured defaults apply.
type ZoneLookup struct {
	Finder  shipping.ZoneFinder
	Breaker *resilience.Breaker
}

// Zone implements ZoneSource.
func (l ZoneLookup) Zone(ctx context.Context, postalCode string) *shipping.Zone {
	key := shipping.PostalKey(postalCode)
	if key == "" || l.Finder == nil {
		return nil
	}
	zone, _ := resilience.Fallback(ctx, l.Breaker, lookupShippingZone, func(ctx context.Context) (*shipping.Zone, error) {
		zones, err := l.Finder.ZonesForPostalKey(ctx, key)
		if err != nil {
			return nil, err
		}
		z, ok := shipping.SelectZone(zones, postalCode)
		if !ok {
			return nil, nil
		}
		return &z, nil
	}, nil)
	return zone
}
