package detector

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Detections tracks detection verdicts by reason code
	Detections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdcache_detections_total",
			Help: "Total change detections by reason",
		},
		[]string{"reason"},
	)

	// DetectionDuration tracks how long detection takes
	DetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mdcache_detection_duration_seconds",
			Help:    "Change detection duration in seconds",
			Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		},
	)
)
