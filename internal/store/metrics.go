package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var stateWrites = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "storefront_state_writes_total",
		Help: "Writes of shop state collections to the KV backend",
	},
	[]string{"collection", "result"},
)
