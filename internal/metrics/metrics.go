// Package metrics exposes generation counters to prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the generator counters on a private registry, so several instances can
// coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	Rounds      prometheus.Counter
	Modules     *prometheus.CounterVec
	Diagnostics *prometheus.CounterVec
	Files       prometheus.Counter
	Duration    prometheus.Histogram
}

// New creates the counters under the given namespace.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Generation rounds run.",
		}),
		Modules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modules_total",
			Help:      "Modules settled, by outcome.",
		}, []string{"state"}),
		Diagnostics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "diagnostics_total",
			Help:      "Diagnostics reported, by severity.",
		}, []string{"severity"}),
		Files: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_written_total",
			Help:      "Generated files written.",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "round_duration_seconds",
			Help:      "Duration of a generation round.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	m.registry.MustRegister(m.Rounds, m.Modules, m.Diagnostics, m.Files, m.Duration)
	return m
}

// Registry returns the registry the counters are registered on.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the counters in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
