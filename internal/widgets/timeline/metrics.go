package timeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtimeline_loads_total",
			Help: "Timeline view loads by resulting render state",
		},
		[]string{"state"},
	)

	savesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtimeline_saves_total",
			Help: "Subitem timeline save attempts by result",
		},
		[]string{"result"},
	)

	selectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "subtimeline_selections_total",
			Help: "Picker changes by outcome",
		},
		[]string{"outcome"},
	)
)
