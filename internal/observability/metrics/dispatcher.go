package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DispatcherMetrics instruments the worker's event dispatch loop.
type DispatcherMetrics struct {
	registry *prometheus.Registry

	dispatchTotal    *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	dispatchInFlight prometheus.Gauge
}

func NewDispatcherMetrics(service string) *DispatcherMetrics {
	registry := prometheus.NewRegistry()

	dispatchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taxintake",
			Subsystem: "dispatcher",
			Name:      "events_total",
			Help:      "Total dispatched events by type and outcome.",
		},
		[]string{"service", "event_type", "outcome"},
	)
	dispatchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taxintake",
			Subsystem: "dispatcher",
			Name:      "dispatch_duration_seconds",
			Help:      "Event dispatch duration in seconds by type.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "event_type"},
	)
	dispatchInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "taxintake",
			Subsystem: "dispatcher",
			Name:      "in_flight_dispatches",
			Help:      "Number of in-flight event dispatches.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(dispatchTotal, dispatchDuration, dispatchInFlight)

	return &DispatcherMetrics{
		registry:         registry,
		dispatchTotal:    dispatchTotal,
		dispatchDuration: dispatchDuration,
		dispatchInFlight: dispatchInFlight,
	}
}

func (m *DispatcherMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *DispatcherMetrics) StartDispatch() {
	m.dispatchInFlight.Inc()
}

func (m *DispatcherMetrics) FinishDispatch(service, eventType string, duration time.Duration, err error) {
	m.dispatchInFlight.Dec()

	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.dispatchTotal.WithLabelValues(service, eventType, outcome).Inc()
	m.dispatchDuration.WithLabelValues(service, eventType).Observe(duration.Seconds())
}
