package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsCountsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCronJobMetrics(reg)
	m.ObserveRun("pending-transaction-poll", 250*time.Millisecond, nil)
	m.ObserveRun("pending-transaction-poll", 100*time.Millisecond, errors.New("wompi unreachable"))
	m.ObserveRun("", time.Millisecond, nil)
	m.IncLockSkipped()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got := counterWithLabels(mfs, "cron_job_runs_total", map[string]string{"job": "pending-transaction-poll", "result": "success"}); got != 1 {
		t.Fatalf("expected 1 success, got %f", got)
	}
	if got := counterWithLabels(mfs, "cron_job_runs_total", map[string]string{"job": "pending-transaction-poll", "result": "failure"}); got != 1 {
		t.Fatalf("expected 1 failure, got %f", got)
	}
	if got := counterWithLabels(mfs, "cron_job_runs_total", map[string]string{"job": "unknown", "result": "success"}); got != 1 {
		t.Fatalf("expected blank job to normalize to unknown, got %f", got)
	}
	if got := counterWithLabels(mfs, "cron_cycles_skipped_total", nil); got != 1 {
		t.Fatalf("expected 1 skipped cycle, got %f", got)
	}

	if got, err := fetchHistogramSum(mfs, "cron_job_duration_seconds", "job", "pending-transaction-poll"); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got < 0.3 {
		t.Fatalf("expected duration sum >= 0.3, got %f", got)
	}
}

func TestNilCronMetricsIsNoop(t *testing.T) {
	var m *CronJobMetrics
	m.ObserveRun("outbox-retention", time.Second, nil)
	m.IncLockSkipped()
	NewCronJobMetrics(nil).ObserveRun("outbox-retention", time.Second, nil)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	got := counterWithLabels(mfs, name, map[string]string{label: value})
	if got < 0 {
		return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
	}
	return got, nil
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
