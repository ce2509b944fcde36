// Package metrics holds the Prometheus collectors for the fulfillment pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fulfillment"

type Metrics struct {
	registry *prometheus.Registry

	paymentOutcomes   *prometheus.CounterVec
	labelGenerations  *prometheus.CounterVec
	labelCancels      *prometheus.CounterVec
	pickupRequests    *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	externalDurations *prometheus.HistogramVec
}

// New registers every collector on reg. Tests pass a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		paymentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_confirmations_total",
			Help:      "Payment confirmation attempts by outcome.",
		}, []string{"outcome"}),
		labelGenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "label_generations_total",
			Help:      "Carrier label purchases by result.",
		}, []string{"result"}),
		labelCancels: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "label_cancellations_total",
			Help:      "Label cancellations by upstream void result.",
		}, []string{"void"}),
		pickupRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pickup_requests_total",
			Help:      "Carrier pickup requests by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification channel attempts by channel and result.",
		}, []string{"channel", "result"}),
		externalDurations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_call_duration_seconds",
			Help:      "Latency of payment gateway, carrier and notification calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target", "operation"}),
	}

	reg.MustRegister(
		m.paymentOutcomes,
		m.labelGenerations,
		m.labelCancels,
		m.pickupRequests,
		m.notifications,
		m.externalDurations,
	)

	return m
}

// NewDefault registers the collectors on a new registry together with the Go
// and process collectors.
func NewDefault() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return New(reg)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) PaymentOutcome(outcome string) {
	m.paymentOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LabelGeneration(result string) {
	m.labelGenerations.WithLabelValues(result).Inc()
}

func (m *Metrics) LabelCancel(voided bool) {
	v := "ok"
	if !voided {
		v = "failed"
	}
	m.labelCancels.WithLabelValues(v).Inc()
}

func (m *Metrics) PickupRequest(result string) {
	m.pickupRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) Notification(channel string, sent bool) {
	result := "sent"
	if !sent {
		result = "failed"
	}
	m.notifications.WithLabelValues(channel, result).Inc()
}

// ObserveExternal is used as: defer m.ObserveExternal("carrier", "create_label", time.Now())
func (m *Metrics) ObserveExternal(target, operation string, start time.Time) {
	m.externalDurations.WithLabelValues(target, operation).Observe(time.Since(start).Seconds())
}
