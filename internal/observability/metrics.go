package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per endpoint, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promoserve_requests_total",
			Help: "Total API requests received",
		},
		[]string{"endpoint", "method", "status"},
	)

	// request latency in seconds per endpoint/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "promoserve_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// serve decisions labelled by outcome (served, no_ad, unknown_client)
	ServeDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promoserve_serve_decisions_total",
			Help: "Total ad selection outcomes",
		},
		[]string{"outcome"},
	)

	// number of events recorded, labelled by type
	EventCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promoserve_events_total",
			Help: "Total events recorded",
		},
		[]string{"type"},
	)

	// recorder refusals labelled by reason (missing, deleted, window, cap, no_impression)
	RecorderRefusals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promoserve_recorder_refusals_total",
			Help: "Total event writes refused by the recorder",
		},
		[]string{"reason"},
	)

	// stats cache effectiveness per scope (campaign, advertiser)
	StatsCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promoserve_stats_cache_hits_total",
			Help: "Total stats cache hits",
		},
		[]string{"scope"},
	)

	StatsCacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "promoserve_stats_cache_misses_total",
			Help: "Total stats cache misses",
		},
		[]string{"scope"},
	)

	// number of errors exporting events to the analytics mirror
	AnalyticsExportErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "promoserve_analytics_export_errors_total",
			Help: "Total failures mirroring events to analytics storage",
		},
	)
)

func init() {
	// register all metrics
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		ServeDecisions,
		EventCount,
		RecorderRefusals,
		StatsCacheHits,
		StatsCacheMisses,
		AnalyticsExportErrors,
	)
}
