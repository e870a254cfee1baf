package scrape

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for scrape backend operations.
var (
	scrapeRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menupipe_scrape_requests_total",
		Help: "Total scrape backend requests by endpoint and status",
	}, []string{"endpoint", "status"})

	scrapeRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "menupipe_scrape_request_duration_seconds",
		Help:    "Scrape backend request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"endpoint"})

	scrapeErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menupipe_scrape_errors_total",
		Help: "Total scrape backend errors by class",
	}, []string{"class"})

	scrapeRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menupipe_scrape_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	scrapeRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "menupipe_scrape_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30},
	}, []string{"error_class"})

	scrapeRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menupipe_scrape_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})

	scrapeRateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "menupipe_scrape_rate_limit_wait_seconds",
		Help:    "Time spent waiting on the minimum inter-request interval",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1},
	})
)
