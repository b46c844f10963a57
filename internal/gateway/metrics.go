package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const outcomeOK = "ok"

var (
	// Upstream call metrics
	upstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recgw_upstream_calls_total",
			Help: "Total number of calls to the recommendation engine",
		},
		[]string{"operation", "outcome"},
	)

	upstreamCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recgw_upstream_call_duration_seconds",
			Help:    "Recommendation engine call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	// Authorization metrics
	forbiddenTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recgw_forbidden_total",
			Help: "Total number of operations rejected by the authorization gate",
		},
		[]string{"operation"},
	)

	healthProbeResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recgw_health_probes_total",
			Help: "Total number of engine health probes by result",
		},
		[]string{"result"},
	)
)

func observeUpstream(kind string, outcome string, start time.Time) {
	upstreamCallsTotal.WithLabelValues(kind, outcome).Inc()
	upstreamCallDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
