package dex

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics for the controller's remote calls.
type Metrics struct {
	callDuration *prometheus.HistogramVec
	callsTotal   *prometheus.CounterVec
}

// NewMetrics creates and registers the metrics for the controller.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		callDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dex_remote_call_duration_seconds",
			Help:    "Time taken by a remote wallet or RPC operation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dex_remote_calls_total",
			Help: "Total number of remote operations, labeled by operation and result.",
		}, []string{"operation", "result"}),
	}
	reg.MustRegister(m.callDuration, m.callsTotal)
	return m
}

// observe records one finished operation. A nil Metrics is a no-op.
func (m *Metrics) observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.callDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.callsTotal.WithLabelValues(operation, result).Inc()
}
