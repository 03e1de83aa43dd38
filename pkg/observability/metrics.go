package observability

import (
	"context"
	"fmt"

	"github.com/aretw0/undolog/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exports command log activity to Prometheus.
type Metrics struct {
	events   *prometheus.CounterVec
	failures *prometheus.CounterVec
	depth    *prometheus.GaugeVec
	steps    prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Total number of log changes by event (commit, undo, purge, merge)",
			},
			[]string{"event"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "action_failures_total",
				Help:      "Total number of undo or purge sweeps where an action reported an error",
			},
			[]string{"event"},
		),
		depth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "log_depth",
				Help:      "Number of transactions currently held by each log",
			},
			[]string{"log"},
		),
		steps: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "transaction_steps",
				Help:      "Number of elementary actions per committed transaction",
				Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64},
			},
		),
	}

	for _, c := range []prometheus.Collector{m.events, m.failures, m.depth, m.steps} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register metrics: %w", err)
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that feed the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	observe := func(_ context.Context, e *domain.TxEvent) {
		m.events.WithLabelValues(string(e.Type)).Inc()
		if e.Error != "" {
			m.failures.WithLabelValues(string(e.Type)).Inc()
		}
		m.depth.WithLabelValues(e.Log).Set(float64(e.Remaining))
		if e.Type == domain.EventCommit {
			m.steps.Observe(float64(e.Steps))
		}
	}
	return domain.LifecycleHooks{
		OnCommit: observe,
		OnUndo:   observe,
		OnPurge:  observe,
		OnMerge:  observe,
	}
}

// Forget drops the depth series of a log that no longer exists.
func (m *Metrics) Forget(log string) {
	m.depth.DeleteLabelValues(log)
}
