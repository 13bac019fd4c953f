package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PollerMetrics instruments the poll/sweep/stale schedules.
type PollerMetrics struct {
	registry *prometheus.Registry

	cyclesTotal      *prometheus.CounterVec
	discoveredTotal  prometheus.Counter
	sweepResetsTotal prometheus.Counter
	staleNoticeTotal prometheus.Counter
}

func NewPollerMetrics(service string) *PollerMetrics {
	registry := prometheus.NewRegistry()
	labels := prometheus.Labels{"service": service}

	cyclesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   "taxintake",
			Subsystem:   "poller",
			Name:        "cycles_total",
			Help:        "Completed scheduler cycles by job and outcome.",
			ConstLabels: labels,
		},
		[]string{"job", "outcome"},
	)
	discoveredTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "taxintake",
			Subsystem:   "poller",
			Name:        "documents_discovered_total",
			Help:        "Placeholder documents created from storage sync.",
			ConstLabels: labels,
		},
	)
	sweepResetsTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "taxintake",
			Subsystem:   "poller",
			Name:        "sweep_resets_total",
			Help:        "Documents reset to pending by the recovery sweep.",
			ConstLabels: labels,
		},
	)
	staleNoticeTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   "taxintake",
			Subsystem:   "poller",
			Name:        "stale_notices_total",
			Help:        "stale_engagement events emitted by the scan.",
			ConstLabels: labels,
		},
	)

	registry.MustRegister(cyclesTotal, discoveredTotal, sweepResetsTotal, staleNoticeTotal)

	return &PollerMetrics{
		registry:         registry,
		cyclesTotal:      cyclesTotal,
		discoveredTotal:  discoveredTotal,
		sweepResetsTotal: sweepResetsTotal,
		staleNoticeTotal: staleNoticeTotal,
	}
}

func (m *PollerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PollerMetrics) CycleDone(job string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.cyclesTotal.WithLabelValues(job, outcome).Inc()
}

func (m *PollerMetrics) DocumentsDiscovered(n int) {
	m.discoveredTotal.Add(float64(n))
}

func (m *PollerMetrics) SweepResets(n int) {
	m.sweepResetsTotal.Add(float64(n))
}

func (m *PollerMetrics) StaleNotice() {
	m.staleNoticeTotal.Inc()
}
