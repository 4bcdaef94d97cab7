package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Carrier API
	CarrierRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_monitor_carrier_requests_total",
			Help: "Total number of carrier order lookups by outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	CarrierRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "delivery_monitor_carrier_request_duration_seconds",
			Help:    "Duration of carrier order lookups in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	// Sync
	SyncResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_monitor_sync_results_total",
			Help: "Per-shipment sync results",
		},
		[]string{"result"},
	)

	NewStatusesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "delivery_monitor_new_statuses_total",
			Help: "Status events inserted by sync",
		},
	)

	SyncBatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "delivery_monitor_sync_batch_duration_seconds",
			Help:    "Duration of a full sync batch in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	// Read side
	ReadCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "delivery_monitor_read_cache_lookups_total",
			Help: "Read-side cache lookups by result",
		},
		[]string{"view", "result"},
	)
)

func ObserveCarrierRequest(endpoint, outcome string, d time.Duration) {
	CarrierRequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	CarrierRequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}
