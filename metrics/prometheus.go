package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusSink exports recorder observations to a Prometheus registry.
// Observations whose name ends in "_seconds" land in a histogram; all
// other observations are treated as counter increments.
type PrometheusSink struct {
	counters  *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewPrometheusSink registers the sink's collectors on reg. Pass
// prometheus.DefaultRegisterer for the usual process-wide registry, or a
// fresh registry in tests.
func NewPrometheusSink(namespace string, reg prometheus.Registerer) *PrometheusSink {
	factory := promauto.With(reg)
	return &PrometheusSink{
		counters: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "observations_total",
				Help:      "Counter observations emitted by the parse metrics recorder",
			},
			[]string{"name"},
		),
		durations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Per-stage parse attempt durations",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
			},
			[]string{"name"},
		),
	}
}

// Observe implements Observer.
func (s *PrometheusSink) Observe(name string, value float64) {
	if strings.HasSuffix(name, "_seconds") {
		s.durations.WithLabelValues(name).Observe(value)
		return
	}
	s.counters.WithLabelValues(name).Add(value)
}
