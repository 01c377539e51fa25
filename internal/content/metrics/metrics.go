package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchAttemptsTotal tracks single network attempts per category and outcome
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noor_fetch_attempts_total",
			Help: "Total number of network attempts",
		},
		[]string{"category", "outcome"},
	)

	// FetchErrorsTotal tracks classified attempt failures
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noor_fetch_errors_total",
			Help: "Total number of classified attempt failures",
		},
		[]string{"category", "kind"},
	)

	// CacheLookupsTotal tracks cache results (hit, miss, shared)
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noor_cache_lookups_total",
			Help: "Total number of content cache lookups by result",
		},
		[]string{"result"},
	)

	// DegradedTotal tracks responses served from stale entries or fallback content
	DegradedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noor_degraded_total",
			Help: "Total number of degraded responses",
		},
		[]string{"category", "source"},
	)

	// NotificationsTotal tracks offered notifications
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "noor_notifications_total",
			Help: "Total number of notifications offered",
		},
		[]string{"severity"},
	)

	// ConnectivityOnline is 1 while the device is online
	ConnectivityOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "noor_connectivity_online",
			Help: "1 if the device is online, 0 otherwise",
		},
	)

	// UpstreamLatency tracks upstream HTTP latency
	UpstreamLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "noor_upstream_latency_seconds",
			Help:    "Upstream request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "status"},
	)
)
