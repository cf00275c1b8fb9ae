package session

import "github.com/prometheus/client_golang/prometheus"

var (
	loadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intentd",
			Subsystem: "session",
			Name:      "loads_total",
			Help:      "Model load attempts by outcome",
		},
		[]string{"outcome"},
	)

	loadDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "intentd",
			Subsystem: "session",
			Name:      "load_duration_seconds",
			Help:      "Duration of successful model loads in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	engineProgressGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "intentd",
			Subsystem: "session",
			Name:      "engine_progress",
			Help:      "Progress of the current model load in [0,1]",
		},
	)

	generationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "intentd",
			Subsystem: "session",
			Name:      "generations_total",
			Help:      "Generation requests by outcome",
		},
		[]string{"outcome"},
	)

	generationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "intentd",
			Subsystem: "session",
			Name:      "generation_duration_seconds",
			Help:      "Duration of completed generations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	transportFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "intentd",
			Subsystem: "session",
			Name:      "transport_failures_total",
			Help:      "Out-of-band execution host failures",
		},
	)
)

func init() {
	prometheus.MustRegister(
		loadsTotal,
		loadDuration,
		engineProgressGauge,
		generationsTotal,
		generationDuration,
		transportFailuresTotal,
	)
}
