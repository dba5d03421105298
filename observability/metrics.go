package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	rpcRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "framerpc",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Total RPC requests by function and outcome.",
		},
		[]string{"function", "status"},
	)
	rpcDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "framerpc",
			Subsystem: "server",
			Name:      "request_duration_seconds",
			Help:      "RPC request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"function", "status"},
	)
	activeConns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "framerpc",
			Subsystem: "server",
			Name:      "connections_active",
			Help:      "Currently open client connections.",
		},
	)
	totalConns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "framerpc",
			Subsystem: "server",
			Name:      "connections_total",
			Help:      "Total accepted client connections.",
		},
	)
)

// RegisterMetrics registers the framerpc collectors with the default
// prometheus registry. Safe to call from multiple entry points.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(rpcRequests, rpcDuration, activeConns, totalConns)
	})
}

// RecordRequest records one dispatched request. Status is "success" or
// "error", mirroring the wire envelope.
func RecordRequest(function, status string, duration time.Duration) {
	RegisterMetrics()
	rpcRequests.WithLabelValues(function, status).Inc()
	rpcDuration.WithLabelValues(function, status).Observe(duration.Seconds())
}

// ConnOpened marks one accepted connection.
func ConnOpened() {
	RegisterMetrics()
	totalConns.Inc()
	activeConns.Inc()
}

// ConnClosed marks one terminated connection.
func ConnClosed() {
	RegisterMetrics()
	activeConns.Dec()
}
