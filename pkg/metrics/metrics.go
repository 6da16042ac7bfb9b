package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// GetTotal counts Cache.Get calls by manager and outcome
	// (hit, stale, miss).
	GetTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cachalot_get_total",
			Help: "Total number of Get calls by manager and outcome",
		},
		[]string{"manager", "outcome"},
	)

	// SetTotal counts Cache.Set calls by manager.
	SetTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cachalot_set_total",
			Help: "Total number of Set calls by manager",
		},
		[]string{"manager"},
	)

	// ExecutorDuration records how long executor invocations take.
	ExecutorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cachalot_executor_duration_seconds",
			Help:    "Time taken to run a cache-miss executor",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"manager"},
	)

	// LockWaitDuration records how long a caller waited on a
	// contended key before falling back to its own strategy.
	LockWaitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cachalot_lock_wait_duration_seconds",
			Help:    "Time spent waiting for a contended key's recompute lock",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"manager"},
	)

	// RefreshAheadTriggeredTotal counts background refreshes fired by
	// the Refresh-Ahead Manager.
	RefreshAheadTriggeredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cachalot_refresh_ahead_triggered_total",
			Help: "Total number of background refreshes triggered",
		},
	)

	// TierOpsTotal counts Multi-Level Manager per-tier operations.
	TierOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cachalot_tier_ops_total",
			Help: "Total number of Multi-Level tier operations by level and op",
		},
		[]string{"level", "op"},
	)

	// BloomChecksTotal counts Bloom pre-checks by result.
	BloomChecksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cachalot_bloom_checks_total",
			Help: "Total number of Bloom filter pre-checks by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		GetTotal,
		SetTotal,
		ExecutorDuration,
		LockWaitDuration,
		RefreshAheadTriggeredTotal,
		TierOpsTotal,
		BloomChecksTotal,
	)
}

// Handler returns the Prometheus HTTP handler for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations against a histogram.
type Timer struct {
	start time.Time
}

// NewTimer starts a new Timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDurationVec records the elapsed time to a histogram vec.
func (t *Timer) ObserveDurationVec(histogram *prometheus.HistogramVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
