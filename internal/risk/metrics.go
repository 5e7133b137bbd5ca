package risk

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DecisionsTotal tracks risk-gate outcomes; reason is empty on approval.
	DecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_risk_decisions_total",
			Help: "Risk gate decisions by outcome and rejection reason",
		},
		[]string{"decision", "reason"},
	)
)
