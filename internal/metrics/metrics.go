package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	// Control-plane calls by operation
	UpstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvs_broker_upstream_requests_total",
			Help: "Total number of control-plane requests by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	UpstreamDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kvs_broker_upstream_duration_seconds",
			Help:    "Latency of control-plane requests",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"op"},
	)

	SignaturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvs_broker_signatures_total",
			Help: "Total number of presigned URLs by outcome",
		},
		[]string{"outcome"},
	)

	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvs_broker_sessions_total",
			Help: "Total number of viewer session initializations by outcome",
		},
		[]string{"outcome"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kvs_broker_rate_limited_total",
			Help: "Total number of requests rejected by the rate limiter",
		},
		[]string{"route"},
	)
)

// Outcome maps an error to an outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

// ObserveUpstream records one control-plane call started at start.
func ObserveUpstream(op string, start time.Time, err error) {
	UpstreamRequestsTotal.WithLabelValues(op, Outcome(err)).Inc()
	UpstreamDurationSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// ObserveSignature records one presign attempt.
func ObserveSignature(err error) {
	SignaturesTotal.WithLabelValues(Outcome(err)).Inc()
}

// ObserveSession records one session initialization.
func ObserveSession(err error) {
	SessionsTotal.WithLabelValues(Outcome(err)).Inc()
}
