package adapters

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	obsRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "obsctl",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total number of requests sent to the build service, by method and status code.",
		},
		[]string{"method", "code"},
	)
	obsRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "obsctl",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Time until response headers were received from the build service.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

// WriteMetrics dumps the process metrics in the Prometheus text format, for
// use with a node exporter textfile collector.
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
