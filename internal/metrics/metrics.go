// Package metrics exposes Prometheus instruments for the scheduler and the
// ledger.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for gastos. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	// Registry owns these metrics; /metrics serves it.
	Registry *prometheus.Registry

	recurringCreated  prometheus.Counter
	recurringFailures prometheus.Counter
	ledgerMutations   *prometheus.CounterVec
	opDuration        *prometheus.HistogramVec
}

// New creates a dedicated registry so tests can build as many instances as
// they need.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		recurringCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "gastos_recurring_entries_created_total",
			Help: "Ledger entries materialized from fixed transactions.",
		}),
		recurringFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "gastos_recurring_failures_total",
			Help: "Fixed transactions that could not be processed.",
		}),
		ledgerMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gastos_ledger_mutations_total",
				Help: "Ledger mutations by kind and operation.",
			},
			[]string{"kind", "op"},
		),
		opDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gastos_operation_duration_seconds",
				Help:    "Duration of service operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (m *Metrics) AddRecurringCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recurringCreated.Add(float64(n))
}

func (m *Metrics) AddRecurringFailures(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.recurringFailures.Add(float64(n))
}

// IncLedgerMutation counts one mutation, e.g. ("expense", "create").
func (m *Metrics) IncLedgerMutation(kind, op string) {
	if m == nil {
		return
	}
	m.ledgerMutations.WithLabelValues(kind, op).Inc()
}

// ObserveDuration records how long operation took since start.
func (m *Metrics) ObserveDuration(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.opDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
