package report

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsWrittenTotal counts summary rows appended to the CSV.
	RowsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_report_rows_written_total",
		Help: "Summary rows appended to the live CSV",
	})

	// RowsSkippedTotal counts reports suppressed by the hash dedup.
	RowsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "crossarb_report_rows_skipped_total",
		Help: "Reports suppressed because content hashes were unchanged",
	})
)
