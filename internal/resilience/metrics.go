package resilience

import "github.com/prometheus/client_golang/prometheus"

const (
	metricsNamespace = "toko"
	metricsSubsystem = "pricing"
)

// Breaker collectors, labelled by lookup target.
var (
	BreakerState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "lookup_breaker_state",
		Help:      "Lookup breaker state (0 closed, 1 open, 2 half-open).",
	}, []string{"target"})
	BreakerTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "lookup_breaker_transitions_total",
		Help:      "Lookup breaker state transitions.",
	}, []string{"target", "from", "to"})
	BreakerOpenedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "lookup_breaker_opened_total",
		Help:      "Times a lookup breaker tripped open.",
	}, []string{"target"})
	BreakerRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: metricsSubsystem,
		Name:      "lookup_breaker_rejected_total",
		Help:      "Lookups answered with defaults without calling the store because the breaker was open.",
	}, []string{"target"})
)

func init() {
	prometheus.MustRegister(BreakerState, BreakerTransitions, BreakerOpenedTotal, BreakerRejectedTotal)
}
