package list

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for list fetches.
var (
	listFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recurly_list_fetches_total",
		Help: "Total page fetches by entity element and result",
	}, []string{"element", "result"})

	listItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recurly_list_items_total",
		Help: "Total entities parsed into pages by entity element",
	}, []string{"element"})
)
