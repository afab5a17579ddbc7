package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics counts reconciliation outcomes and gateway traffic.
type PaymentMetrics struct {
	reconciliations *prometheus.CounterVec
	webhooks        *prometheus.CounterVec
	notifications   *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment counters on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_reconciliations_total",
		Help: "Gateway status updates applied, by source and outcome.",
	}, []string{"source", "outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_total",
		Help: "Gateway webhook deliveries, by result.",
	}, []string{"result"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_notifications_total",
		Help: "Order confirmation emails, by result.",
	}, []string{"result"})
	reg.MustRegister(reconciliations, webhooks, notifications)
	return &PaymentMetrics{
		reconciliations: reconciliations,
		webhooks:        webhooks,
		notifications:   notifications,
	}
}

// ObserveReconciliation records one reconciliation attempt.
func (m *PaymentMetrics) ObserveReconciliation(source, outcome string) {
	if m == nil || m.reconciliations == nil {
		return
	}
	m.reconciliations.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

// ObserveWebhook records the result of a webhook delivery.
func (m *PaymentMetrics) ObserveWebhook(result string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveNotification records a confirmation email attempt.
func (m *PaymentMetrics) ObserveNotification(result string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(result)).Inc()
}

// OutboxMetrics counts outbox publisher results.
type OutboxMetrics struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_published_total",
		Help: "Outbox events published, by event type.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_failed_total",
		Help: "Outbox publish failures, by event type and terminal flag.",
	}, []string{"event_type", "terminal"})
	reg.MustRegister(published, failed)
	return &OutboxMetrics{published: published, failed: failed}
}

func (m *OutboxMetrics) IncPublished(eventType string) {
	if m == nil || m.published == nil {
		return
	}
	m.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *OutboxMetrics) IncFailed(eventType string, terminal bool) {
	if m == nil || m.failed == nil {
		return
	}
	flag := "false"
	if terminal {
		flag = "true"
	}
	m.failed.WithLabelValues(normalizeLabel(eventType), flag).Inc()
}
