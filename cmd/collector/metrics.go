package main

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	registry *prometheus.Registry
	events   *prometheus.CounterVec
	advanced prometheus.Counter
}

// newMetrics registers the event counters on a private registry.
func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "points",
			Subsystem: "collector",
			Name:      "events_total",
			Help:      "Task events dispatched, by kind and task type.",
		}, []string{"kind", "type"}),
		advanced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "points",
			Subsystem: "payment",
			Name:      "phase_advances_total",
			Help:      "Payment events that moved a tracked payment forward.",
		}),
	}
	m.registry.MustRegister(m.events, m.advanced)
	return m
}

// watchWatermark exports the collector's watermark as a gauge.
func (m *metrics) watchWatermark(collector statusSource) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "points",
		Subsystem: "collector",
		Name:      "watermark",
		Help:      "Highest task sequence seen.",
	}, func() float64 { return float64(collector.Watermark()) }))
}
