package crawl

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeIgnored = "ignored"
)

var (
	requestCount    *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	pendingRequests prometheus.Gauge
	lastRunTime     prometheus.Gauge
)

// EnableMetrics will enable metrics collection for the crawl, if not called
// package will not collect any metrics
func EnableMetrics(metricsNamespace string, registerer prometheus.Registerer) {
	requestCount = promauto.With(registerer).NewCounterVec(prometheus.CounterOpts{
		Name:      "requests_total",
		Namespace: metricsNamespace,
		Help:      "Total number of crawl requests executed by operation and outcome.",
	},
		[]string{
			// name of the catalog operation
			"op",
			// success, failure or ignored
			"outcome",
		},
	)

	requestLatency = promauto.With(registerer).NewHistogramVec(prometheus.HistogramOpts{
		Name:      "request_duration_seconds",
		Namespace: metricsNamespace,
		Help:      "Duration of crawl requests by operation.",
	},
		[]string{
			// name of the catalog operation
			"op",
		},
	)

	pendingRequests = promauto.With(registerer).NewGauge(prometheus.GaugeOpts{
		Name:      "pending_requests",
		Namespace: metricsNamespace,
		Help:      "Number of requests left outstanding after the last run.",
	})

	lastRunTime = promauto.With(registerer).NewGauge(prometheus.GaugeOpts{
		Name:      "last_run_timestamp_seconds",
		Namespace: metricsNamespace,
		Help:      "Unix timestamp of the last completed run.",
	})
}

func recordRequest(op, outcome string, start time.Time) {
	if requestCount != nil {
		requestCount.WithLabelValues(op, outcome).Inc()
	}
	if requestLatency != nil {
		requestLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}
}

func setPendingRequests(count int) {
	if pendingRequests != nil {
		pendingRequests.Set(float64(count))
	}
}

func setLastRunTime(t time.Time) {
	if lastRunTime != nil {
		lastRunTime.Set(float64(t.Unix()))
	}
}
