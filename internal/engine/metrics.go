package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IterationsTotal counts completed engine iterations.
	IterationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_engine_iterations_total",
		Help: "Completed engine iterations",
	})

	// IterationDuration tracks full iteration latency.
	IterationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "crossarb_engine_iteration_duration_seconds",
		Help:    "Duration of one full engine iteration",
		Buckets: prometheus.DefBuckets,
	})

	// MarketsFetched is the size of the last unified snapshot.
	MarketsFetched = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_engine_markets_fetched",
		Help: "Markets in the last unified snapshot after filtering",
	})

	// FetchErrorsTotal counts failed source fetches by venue.
	FetchErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_engine_fetch_errors_total",
			Help: "Source fetch failures by venue",
		},
		[]string{"venue"},
	)

	// DetectorFailuresTotal counts detectors skipped after an error or panic.
	DetectorFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_engine_detector_failures_total",
			Help: "Detector sweeps skipped after an error or panic",
		},
		[]string{"detector"},
	)
)
