package broker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TradesFilledTotal tracks simulated fills by side.
	TradesFilledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_broker_trades_filled_total",
			Help: "Simulated fills by side",
		},
		[]string{"side"},
	)

	// TradesSkippedTotal tracks silently refused actions.
	TradesSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crossarb_broker_trades_skipped_total",
			Help: "Actions refused by the fill simulator",
		},
		[]string{"reason"},
	)

	// EquityGauge is cash plus mark-to-market positions.
	EquityGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_broker_equity",
		Help: "Total equity of the paper book",
	})

	// CashGauge is the uninvested balance.
	CashGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crossarb_broker_cash",
		Help: "Cash balance of the paper book",
	})
)
