package detectors

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OpportunitiesDetectedTotal tracks opportunities emitted per detector.
	OpportunitiesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_detector_opportunities_total",
			Help: "Total number of opportunities emitted",
		},
		[]string{"detector"},
	)

	// CandidatesRejectedTotal tracks candidates discarded before emission.
	CandidatesRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_detector_candidates_rejected_total",
			Help: "Total number of candidate mispricings rejected",
		},
		[]string{"detector", "reason"},
	)

	// DetectionDurationSeconds tracks per-detector sweep latency.
	DetectionDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crossarb_detector_duration_seconds",
			Help:    "Duration of one detector sweep over the snapshot",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"detector"},
	)

	// OpportunityNetEdge tracks emitted net edges.
	OpportunityNetEdge = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_detector_net_edge",
		Help:    "Net edge of emitted opportunities",
		Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.5},
	})
)
