package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestPaymentMetricsCountsOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)
	m.ObserveReconciliation("webhook", "UPDATED")
	m.ObserveReconciliation("webhook", "UPDATED")
	m.ObserveReconciliation("poll", "")
	m.ObserveWebhook("invalid_signature")
	m.ObserveNotification("sent")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got := counterWithLabels(mfs, "payment_reconciliations_total", map[string]string{"source": "webhook", "outcome": "UPDATED"}); got != 2 {
		t.Fatalf("expected 2 webhook updates, got %f", got)
	}
	if got := counterWithLabels(mfs, "payment_reconciliations_total", map[string]string{"source": "poll", "outcome": "unknown"}); got != 1 {
		t.Fatalf("expected blank outcome to normalize to unknown, got %f", got)
	}
	if got, err := fetchCounterValue(mfs, "payment_webhooks_total", "result", "invalid_signature"); err != nil || got != 1 {
		t.Fatalf("expected webhook counter 1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "order_notifications_total", "result", "sent"); err != nil || got != 1 {
		t.Fatalf("expected notification counter 1, got %f (%v)", got, err)
	}
}

func TestNilRegistererIsNoop(t *testing.T) {
	m := NewPaymentMetrics(nil)
	m.ObserveReconciliation("webhook", "UPDATED")
	var nilMetrics *OutboxMetrics
	nilMetrics.IncPublished("order.paid")
	nilMetrics.IncFailed("order.paid", true)
}

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)
	m.IncPublished("order.paid")
	m.IncFailed("order.paid", true)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "outbox_published_total", "event_type", "order.paid"); err != nil || got != 1 {
		t.Fatalf("expected published 1, got %f (%v)", got, err)
	}
	if got := counterWithLabels(mfs, "outbox_failed_total", map[string]string{"event_type": "order.paid", "terminal": "true"}); got != 1 {
		t.Fatalf("expected terminal failure 1, got %f", got)
	}
}

func counterWithLabels(mfs []*dto.MetricFamily, name string, labels map[string]string) float64 {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return -1
	}
	for _, metric := range mf.GetMetric() {
		matched := true
		for k, v := range labels {
			if !matchesLabel(metric.GetLabel(), k, v) {
				matched = false
				break
			}
		}
		if matched {
			return metric.GetCounter().GetValue()
		}
	}
	return -1
}
