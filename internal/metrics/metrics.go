// Package metrics exposes run-level Prometheus counters and gauges. It is
// ambient instrumentation: gated behind --metrics-addr and never consulted
// by the orchestration logic itself.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "x402orch"

// Collector owns the registry and every metric this run records.
type Collector struct {
	registry *prometheus.Registry

	scenariosTotal  *prometheus.CounterVec
	combosRunning   prometheus.Gauge
	facilitatorWait *prometheus.HistogramVec
}

// NewCollector builds a Collector against a fresh registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,
		scenariosTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scenarios_total",
			Help:      "Count of executed scenarios by outcome.",
		}, []string{"result"}),
		combosRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "combos_running",
			Help:      "Number of combos currently executing.",
		}),
		facilitatorWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "facilitator_ready_seconds",
			Help:      "Time from facilitator construction to ready, by facilitator.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30},
		}, []string{"facilitator"}),
	}

	registry.MustRegister(c.scenariosTotal, c.combosRunning, c.facilitatorWait)
	return c
}

// RecordScenario increments the scenario counter for a pass/fail outcome.
// A nil Collector is a no-op, so callers don't need to guard --metrics-addr
// being unset.
func (c *Collector) RecordScenario(passed bool) {
	if c == nil {
		return
	}
	if passed {
		c.scenariosTotal.WithLabelValues("passed").Inc()
	} else {
		c.scenariosTotal.WithLabelValues("failed").Inc()
	}
}

// ComboStarted and ComboFinished track in-flight combo count.
func (c *Collector) ComboStarted() {
	if c == nil {
		return
	}
	c.combosRunning.Inc()
}

func (c *Collector) ComboFinished() {
	if c == nil {
		return
	}
	c.combosRunning.Dec()
}

// ObserveFacilitatorReady records how long a facilitator took to warm up.
func (c *Collector) ObserveFacilitatorReady(name string, seconds float64) {
	if c == nil {
		return
	}
	c.facilitatorWait.WithLabelValues(name).Observe(seconds)
}

// Handler exposes the registry's metrics in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
}
