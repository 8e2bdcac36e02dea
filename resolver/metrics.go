package resolver

import "github.com/prometheus/client_golang/prometheus"

const (
	resultCached    = "cached"
	resultMatched   = "matched"
	resultLoaded    = "loaded"
	resultSatellite = "satellite"
	resultNegative  = "negative"
	resultMiss      = "miss"
	resultCycle     = "cycle"
)

// LookupsTotal counts resolutions by outcome.
var LookupsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "autowire_resolver_lookups_total",
		Help: "Number of module resolutions by result.",
	},
	[]string{"result"},
)

func observe(result string) {
	LookupsTotal.WithLabelValues(result).Inc()
}
