package decoder

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "hyperdem"

// Metrics counts decoded shots and solver failures and times solves.
// A nil *Metrics records nothing.
type Metrics struct {
	shots        *prometheus.CounterVec
	failures     *prometheus.CounterVec
	solveSeconds prometheus.Histogram
}

// NewMetrics registers the decoder metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		shots: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "shots_total",
				Help:      "Total number of decoded shots",
			},
			[]string{"mode"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "solver_failures_total",
				Help:      "Total number of shots the solver could not decode",
			},
			[]string{"reason"},
		),
		solveSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "solve_seconds",
				Help:      "Time spent in a single solve",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 12),
			},
		),
	}
}

func (m *Metrics) shot(mode string) {
	if m == nil {
		return
	}
	m.shots.WithLabelValues(mode).Inc()
}

func (m *Metrics) failure(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}

func (m *Metrics) observeSolve(d time.Duration) {
	if m == nil {
		return
	}
	m.solveSeconds.Observe(d.Seconds())
}
