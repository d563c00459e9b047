package jobmetrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors shared by the worker's task handlers.
type Metrics struct {
	runs        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
	imbalance   *prometheus.GaugeVec
}

var (
	processOnce    sync.Once
	processMetrics *Metrics
)

// NewMetrics registers the collectors on registerer. A nil registerer shares
// one process-wide set on the default registry.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer != nil {
		return register(registerer)
	}
	processOnce.Do(func() {
		processMetrics = register(prometheus.DefaultRegisterer)
	})
	return processMetrics
}

// Observe records one run of task that began at started and hands err back,
// so handlers can write
//
//	defer func(start time.Time) { err = m.Observe(task, start, err) }(time.Now())
func (m *Metrics) Observe(task string, started time.Time, err error) error {
	if m == nil || task == "" {
		return err
	}
	m.duration.WithLabelValues(task).Observe(time.Since(started).Seconds())
	if err != nil {
		m.runs.WithLabelValues(task, "failure").Inc()
		m.failures.WithLabelValues(task).Inc()
		return err
	}
	m.runs.WithLabelValues(task, "success").Inc()
	m.lastSuccess.WithLabelValues(task).SetToCurrentTime()
	return nil
}

// SetImbalance publishes the absolute difference found by an integrity
// check. Zero means the check reconciled.
func (m *Metrics) SetImbalance(check, scope string, amount float64) {
	if m == nil {
		return
	}
	if amount < 0 {
		amount = -amount
	}
	m.imbalance.WithLabelValues(check, scope).Set(amount)
}

func register(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pharma_ledger_task_runs_total",
			Help: "Worker task executions by task type and outcome.",
		}, []string{"task", "status"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pharma_ledger_task_failures_total",
			Help: "Worker task executions that returned an error.",
		}, []string{"task"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pharma_ledger_task_duration_seconds",
			Help:    "Wall time of worker task executions.",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		}, []string{"task"}),
		lastSuccess: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pharma_ledger_task_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run per task type.",
		}, []string{"task"}),
		imbalance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pharma_ledger_imbalance",
			Help: "Absolute difference reported by the last run of a ledger integrity check.",
		}, []string{"check", "scope"}),
	}
}
