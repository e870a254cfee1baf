package extraction

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "menupipe_extractions_total",
		Help: "Total number of extraction attempts by outcome status",
	}, []string{"status"})

	completionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "menupipe_completion_duration_seconds",
		Help:    "Completion API request duration in seconds",
		Buckets: prometheus.DefBuckets,
	})
)
