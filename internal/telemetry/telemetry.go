package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors for the query pipeline.
type Metrics struct {
	SearchRequests prometheus.Counter
	SearchDuration prometheus.Histogram
	FetchFailures  prometheus.Counter
	EvalFallbacks  prometheus.Counter
	UpstreamErrors *prometheus.CounterVec
}

// New registers the pipeline collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SearchRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shopchat_search_requests_total",
			Help: "Search requests handled.",
		}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shopchat_search_duration_seconds",
			Help:    "End to end search handling duration.",
			Buckets: prometheus.DefBuckets,
		}),
		FetchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shopchat_item_fetch_failures_total",
			Help: "Per-item product fetches that produced an error placeholder.",
		}),
		EvalFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shopchat_evaluation_fallbacks_total",
			Help: "Evaluations that degraded to the floor score.",
		}),
		UpstreamErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shopchat_upstream_errors_total",
			Help: "Upstream provider failures by service.",
		}, []string{"service"}),
	}
	reg.MustRegister(m.SearchRequests, m.SearchDuration, m.FetchFailures, m.EvalFallbacks, m.UpstreamErrors)
	return m
}

// Handler exposes the default prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
