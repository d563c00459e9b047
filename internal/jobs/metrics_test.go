package jobmetrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	_ "github.com/odyssey-erp/pharma-ledger/testing"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, fam := range families {
		out[fam.GetName()] = fam
	}
	return out
}

func labelled(fam *dto.MetricFamily, labels map[string]string) *dto.Metric {
	if fam == nil {
		return nil
	}
	for _, metric := range fam.GetMetric() {
		matched := 0
		for _, pair := range metric.GetLabel() {
			if labels[pair.GetName()] == pair.GetValue() {
				matched++
			}
		}
		if matched == len(labels) {
			return metric
		}
	}
	return nil
}

func TestObserveCountsRunsAndFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	for i := 0; i < 3; i++ {
		if err := metrics.Observe("gl:integrity", time.Now(), nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	boom := errors.New("boom")
	if err := metrics.Observe("gl:integrity", time.Now(), boom); !errors.Is(err, boom) {
		t.Fatalf("expected error to propagate, got %v", err)
	}

	families := gather(t, reg)
	ok := labelled(families["pharma_ledger_task_runs_total"], map[string]string{"task": "gl:integrity", "status": "success"})
	if ok == nil || ok.GetCounter().GetValue() != 3 {
		t.Fatalf("expected 3 successful runs, got %v", ok)
	}
	failed := labelled(families["pharma_ledger_task_failures_total"], map[string]string{"task": "gl:integrity"})
	if failed == nil || failed.GetCounter().GetValue() != 1 {
		t.Fatalf("expected 1 failure, got %v", failed)
	}
	hist := labelled(families["pharma_ledger_task_duration_seconds"], map[string]string{"task": "gl:integrity"})
	if hist == nil || hist.GetHistogram().GetSampleCount() != 4 {
		t.Fatalf("expected 4 duration samples, got %v", hist)
	}
	last := labelled(families["pharma_ledger_task_last_success_timestamp_seconds"], map[string]string{"task": "gl:integrity"})
	if last == nil || last.GetGauge().GetValue() <= 0 {
		t.Fatalf("expected last success timestamp, got %v", last)
	}
}

func TestSetImbalanceStoresAbsoluteValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	metrics.SetImbalance("inventory_valuation", "all", -12.5)

	gauge := labelled(gather(t, reg)["pharma_ledger_imbalance"], map[string]string{"check": "inventory_valuation", "scope": "all"})
	if gauge == nil || gauge.GetGauge().GetValue() != 12.5 {
		t.Fatalf("expected imbalance 12.5, got %v", gauge)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.SetImbalance("trial_balance", "ledger", 1)
	boom := errors.New("boom")
	if err := metrics.Observe("noop", time.Now(), boom); !errors.Is(err, boom) {
		t.Fatalf("expected error to pass through, got %v", err)
	}
}
