package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Custom registry keeps the scrape output to our own series.
var metricsRegistry = prometheus.NewRegistry()

var (
	analysisRuns = promauto.With(metricsRegistry).NewCounter(prometheus.CounterOpts{
		Namespace: "walkby",
		Name:      "analysis_runs_total",
		Help:      "Total number of analysis runs executed",
	})

	analysisDuration = promauto.With(metricsRegistry).NewHistogram(prometheus.HistogramOpts{
		Namespace: "walkby",
		Name:      "analysis_duration_seconds",
		Help:      "Histogram of full-pipeline analysis wall time",
		Buckets:   prometheus.DefBuckets,
	})

	samplesIngested = promauto.With(metricsRegistry).NewCounter(prometheus.CounterOpts{
		Namespace: "walkby",
		Name:      "samples_ingested_total",
		Help:      "Total number of raw sensor samples accepted",
	})

	httpRequests = promauto.With(metricsRegistry).NewCounterVec(prometheus.CounterOpts{
		Namespace: "walkby",
		Name:      "http_requests_total",
		Help:      "HTTP requests by path and status code",
	}, []string{"path", "status"})
)

// MetricsHandler serves the Prometheus scrape endpoint.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})
}
