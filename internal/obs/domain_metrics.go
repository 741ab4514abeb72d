package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// QuotesTotal counts totals computations by outcome.
	QuotesTotal *prometheus.CounterVec
	// QuoteDuration records end-to-end totals computation latency in milliseconds.
	QuoteDuration prometheus.Histogram
	// DealsAppliedTotal counts products priced by a deal, by discount kind.
	DealsAppliedTotal *prometheus.CounterVec
	// CouponOutcomesTotal counts coupon evaluations by result.
	CouponOutcomesTotal *prometheus.CounterVec
	// DegradedLookupsTotal counts best-effort lookups that fell back to defaults.
	DegradedLookupsTotal *prometheus.CounterVec
	// MissingProductsTotal counts line items skipped because their product was not found.
	MissingProductsTotal prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers pricing Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		QuotesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Count of totals computations by outcome.",
		}, []string{"result"})
		QuoteDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_quote_duration_ms",
			Help:      "Latency of totals computations in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		})
		DealsAppliedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_deals_applied_total",
			Help:      "Count of products priced by a deal.",
		}, []string{"kind"})
		CouponOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_coupon_outcomes_total",
			Help:      "Count of coupon evaluations by result.",
		}, []string{"result"})
		DegradedLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_degraded_lookups_total",
			Help:      "Count of best-effort lookups that fell back to defaults.",
		}, []string{"lookup"})
		MissingProductsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_missing_products_total",
			Help:      "Line items skipped because the referenced product was not found.",
		})

		mustRegisterCollector(reg, QuotesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				QuotesTotal = v
			}
		})
		mustRegisterCollector(reg, QuoteDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Histogram); ok {
				QuoteDuration = v
			}
		})
		mustRegisterCollector(reg, DealsAppliedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DealsAppliedTotal = v
			}
		})
		mustRegisterCollector(reg, CouponOutcomesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CouponOutcomesTotal = v
			}
		})
		mustRegisterCollector(reg, DegradedLookupsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				DegradedLookupsTotal = v
			}
		})
		mustRegisterCollector(reg, MissingProductsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				MissingProductsTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
