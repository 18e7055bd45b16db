package monday

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "monday",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total number of platform GraphQL operations broken down by operation and result.",
	}, []string{"operation", "result"})

	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "monday",
		Subsystem: "api",
		Name:      "latency_seconds",
		Help:      "Latency distribution for platform GraphQL operations.",
		Buckets: []float64{
			0.05, 0.1, 0.2, 0.5,
			1, 2, 5, 10, 30,
		},
	}, []string{"operation", "result"})
)

func observe(op Operation, start time.Time, err error) {
	result := "ok"
	switch {
	case err == nil:
	case IsAPIError(err):
		result = "api_error"
	default:
		result = "transport_error"
	}
	labels := prometheus.Labels{
		"operation": op.Name,
		"result":    result,
	}
	requestsTotal.With(labels).Inc()
	requestLatency.With(labels).Observe(time.Since(start).Seconds())
}
