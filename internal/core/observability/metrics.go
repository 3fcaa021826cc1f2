package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of scheduling-API calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"outcome"},
	)

	upstreamRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "upstream_retries_total",
			Help: "Retried scheduling-API calls.",
		},
	)

	cacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_results_total",
			Help: "Result-cache lookups by namespace and outcome.",
		},
		[]string{"namespace", "outcome"},
	)

	cacheOpSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cache_op_duration_seconds",
			Help:    "Duration of result-cache operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op", "status"},
	)

	importTripsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "import_trips_total",
			Help: "Trip records processed by the import pipeline.",
		},
	)

	importBatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "import_batches_total",
			Help: "Batches processed by the import pipeline.",
		},
	)

	ruleHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rule_hits_total",
			Help: "Compliance rule hits by rule.",
		},
		[]string{"rule"},
	)

	buildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_build_info",
			Help: "Build information for the binary.",
		},
		[]string{"version"},
	)
)

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstream(err error, durationSeconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	upstreamLatencySeconds.WithLabelValues(outcome).Observe(durationSeconds)
}

func IncUpstreamRetry() {
	upstreamRetriesTotal.Inc()
}

func ObserveCacheOp(op string, err error, durationSeconds float64) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	cacheOpSeconds.WithLabelValues(op, status).Observe(durationSeconds)
}

func IncCacheHit(namespace string) {
	cacheResults.WithLabelValues(namespace, "hit").Inc()
}

func IncCacheMiss(namespace string) {
	cacheResults.WithLabelValues(namespace, "miss").Inc()
}

func AddImportTrips(n int) {
	importTripsTotal.Add(float64(n))
}

func IncImportBatch() {
	importBatchesTotal.Inc()
}

func AddRuleHits(rule string, n int) {
	if n <= 0 {
		return
	}
	ruleHitsTotal.WithLabelValues(rule).Add(float64(n))
}

func ExposeBuildInfo(version string) {
	if version == "" {
		version = "dev"
	}
	buildInfo.WithLabelValues(version).Set(1)
}
