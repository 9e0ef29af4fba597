package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Grain Storage Core metrics
	ReadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mgs_reads_total",
			Help: "Total READ operations by storage and outcome (cache_hit, durable_hit, migrated, miss)",
		},
		[]string{"storage", "outcome"},
	)

	WritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mgs_writes_total",
			Help: "Total WRITE operations by storage and path (write_through, write_behind)",
		},
		[]string{"storage", "path"},
	)

	ClearsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mgs_clears_total",
			Help: "Total CLEAR operations by storage",
		},
		[]string{"storage"},
	)

	ConcurrencyConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mgs_concurrency_conflicts_total",
			Help: "Total WRITE operations rejected with a concurrency conflict, by storage",
		},
		[]string{"storage"},
	)

	WriteOverflowTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mgs_write_overflow_total",
			Help: "Total WRITEs that crossed the write-behind threshold, by storage",
		},
		[]string{"storage"},
	)

	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mgs_operation_duration_seconds",
			Help:    "Grain Storage Core operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"storage", "op"},
	)

	// Cache Adapter metrics
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mgs_cache_errors_total",
			Help: "Total cache transport errors by storage and operation",
		},
		[]string{"storage", "op"},
	)

	// Drainer metrics
	DrainCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mgs_drain_cycles_total",
			Help: "Total drain cycles attempted by storage and outcome (drained, empty, lease_unavailable)",
		},
		[]string{"storage", "outcome"},
	)

	DrainCycleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mgs_drain_cycle_duration_seconds",
			Help:    "Time taken for a single storage's drain cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"storage"},
	)

	DrainedKeysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mgs_drained_keys_total",
			Help: "Total dirty keys successfully persisted to the durable store, by storage",
		},
		[]string{"storage"},
	)

	DrainFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mgs_drain_failures_total",
			Help: "Total dirty keys that failed to drain and were re-marked dirty, by storage",
		},
		[]string{"storage"},
	)
)

func init() {
	prometheus.MustRegister(ReadsTotal)
	prometheus.MustRegister(WritesTotal)
	prometheus.MustRegister(ClearsTotal)
	prometheus.MustRegister(ConcurrencyConflictsTotal)
	prometheus.MustRegister(WriteOverflowTotal)
	prometheus.MustRegister(OperationDuration)
	prometheus.MustRegister(CacheErrorsTotal)
	prometheus.MustRegister(DrainCyclesTotal)
	prometheus.MustRegister(DrainCycleDuration)
	prometheus.MustRegister(DrainedKeysTotal)
	prometheus.MustRegister(DrainFailuresTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
