package deal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/toko-pricing/internal/catalog"
	"github.com/noah-isme/toko-pricing/internal/obs"
)

// Store loads deals that may be active at the provided instant.
type Store interface {
	ActiveDeals(ctx context.Context, now time.Time) ([]Deal, error)
}

// Catalog answers membership queries used to expand category scoped deals.
// Implementations return only active, non-deleted products.
type Catalog interface {
	ProductIDsByCategories(ctx context.Context, categoryIDs []catalog.ID) ([]catalog.ID, error)
	ProductIDsBySubcategories(ctx context.Context, subcategoryIDs []catalog.ID) ([]catalog.ID, error)
}

// Engine resolves which deal, if any, prices each product.
type Engine struct {
	Deals   Store
	Catalog Catalog
	Logger  zerolog.Logger
	// Concurrency bounds parallel target resolution. Zero means unbounded.
	Concurrency int
}

// ListActive returns deals active at now ordered by ID, which is the
// tie-break order used by Best.
func (e *Engine) ListActive(ctx context.Context, now time.Time) ([]Deal, error) {
	if e == nil || e.Deals == nil {
		return nil, errors.New("deal engine not configured")
	}
	deals, err := e.Deals.ActiveDeals(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("list active deals: %w", err)
	}
	active := make([]Deal, 0, len(deals))
	for _, d := range deals {
		if d.IsActiveAt(now) {
			active = append(active, d)
		}
	}
	sort.SliceStable(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active, nil
}

// ResolveTargets expands a deal into the ids it applies to. It returns nil
// for global deals.
func (e *Engine) ResolveTargets(ctx context.Context, d Deal) (TargetSet, error) {
	if d.Global {
		return nil, nil
	}
	set := make(TargetSet, len(d.Products))
	for _, ref := range d.Products {
		if ref.Valid() {
			set[ref.ID()] = struct{}{}
		}
	}
	if len(d.Categories) > 0 || len(d.Subcategories) > 0 {
		if e == nil || e.Catalog == nil {
			return nil, errors.New("deal catalog not configured")
		}
	}
	if len(d.Categories) > 0 {
		ids, err := e.Catalog.ProductIDsByCategories(ctx, d.Categories)
		if err != nil {
			return nil, fmt.Errorf("deal %s categories: %w", d.ID, err)
		}
		addIDs(set, ids)
	}
	if len(d.Subcategories) > 0 {
		ids, err := e.Catalog.ProductIDsBySubcategories(ctx, d.Subcategories)
		if err != nil {
			return nil, fmt.Errorf("deal %s subcategories: %w", d.ID, err)
		}
		addIDs(set, ids)
	}
	return set, nil
}

// ResolveAll resolves every deal's targets concurrently. The returned map has
// an entry for each deal; global deals map to nil.
func (e *Engine) ResolveAll(ctx context.Context, deals []Deal) (map[string]TargetSet, error) {
	results := make([]TargetSet, len(deals))
	g, gctx := errgroup.WithContext(ctx)
	if e != nil && e.Concurrency > 0 {
		g.SetLimit(e.Concurrency)
	}
	for i := range deals {
		i := i
		g.Go(func() error {
			set, err := e.ResolveTargets(gctx, deals[i])
			if err != nil {
				return err
			}
			results[i] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string]TargetSet, len(deals))
	for i, d := range deals {
		out[d.ID] = results[i]
	}
	return out, nil
}

// Annotate prices each product against the deals active at now. The input is
// left untouched; the result has the same length and order.
func (e *Engine) Annotate(ctx context.Context, products []catalog.Product, now time.Time) ([]PricedProduct, error) {
	ctx, span := obs.Tracer("deal").Start(ctx, "deal.Annotate")
	defer span.End()
	span.SetAttributes(attribute.Int("products", len(products)))

	deals, err := e.ListActive(ctx, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("deals.active", len(deals)))

	out := make([]PricedProduct, len(products))
	if len(deals) == 0 {
		for i, p := range products {
			out[i] = PricedProduct{Product: p, Pricing: Pricing{OriginalPrice: p.BasePrice()}}
		}
		return out, nil
	}

	targets, err := e.ResolveAll(ctx, deals)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("resolve deal targets: %w", err)
	}
	kinds := make(map[string]Kind, len(deals))
	for _, d := range deals {
		kinds[d.ID] = d.Kind
	}
	applied := 0
	for i, p := range products {
		pricing := Best(p, deals, targets)
		out[i] = PricedProduct{Product: p, Pricing: pricing}
		if pricing.AppliedDealID != nil {
			applied++
			if obs.DealsAppliedTotal != nil {
				obs.DealsAppliedTotal.WithLabelValues(string(kinds[*pricing.AppliedDealID])).Inc()
			}
		}
	}
	e.Logger.Debug().
		Int("products", len(products)).
		Int("deals", len(deals)).
		Int("applied", applied).
		Msg("deal_annotate")
	return out, nil
}

func addIDs(set TargetSet, ids []catalog.ID) {
	for _, id := range ids {
		if !id.Empty() {
			set[id] = struct{}{}
		}
	}
}
