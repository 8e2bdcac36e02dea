package wiring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/itsneelabh/autowire/resolver"
)

var (
	activationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autowire_wiring_activations_total",
			Help: "Number of capability activations by rule.",
		},
		[]string{"rule"},
	)
	activationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "autowire_wiring_activation_errors_total",
			Help: "Number of failed capability activations by rule.",
		},
		[]string{"rule"},
	)
	passDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "autowire_wiring_pass_duration_seconds",
			Help:    "Time taken to evaluate the wiring table.",
			Buckets: prometheus.DefBuckets,
		},
	)

	metricsRegistry = prometheus.NewRegistry()
)

func init() {
	metricsRegistry.MustRegister(
		activationsTotal,
		activationErrorsTotal,
		passDuration,
		resolver.LookupsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// MetricsRegistry returns the registry holding wiring, resolver and runtime
// metrics. Management endpoints expose it.
func MetricsRegistry() *prometheus.Registry {
	return metricsRegistry
}
