package validator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ValidationsRejectedTotal tracks strict A+B rejections by reason.
	ValidationsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_validator_rejections_total",
			Help: "Opportunities rejected by the strict dual-venue validator",
		},
		[]string{"reason"},
	)
)
