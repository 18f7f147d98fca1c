package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Import pipeline counters. The serving layer decides how to expose them
// (promhttp or a push gateway); the engine only increments.
var (
	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_imports_total",
		Help: "Number of roster import commits, by result.",
	}, []string{"result"})

	ImportRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_import_rows_total",
		Help: "Number of committed roster rows, by outcome.",
	}, []string{"outcome"})

	PreviewsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roster_previews_total",
		Help: "Number of reconciliation previews computed.",
	})
)
