package metrics

import "github.com/prometheus/client_golang/prometheus"

// SubscriptionMetrics tracks live SUBSCRIBE/QUERY delivery pumps.
type SubscriptionMetrics struct {
	active         *prometheus.GaugeVec
	eventsTotal    *prometheus.CounterVec
	skippedTotal   *prometheus.CounterVec
	creditGauge    *prometheus.GaugeVec
}

// NewSubscriptionMetrics initializes subscription metrics with the collector.
func NewSubscriptionMetrics(collector *Collector) *SubscriptionMetrics {
	return &SubscriptionMetrics{
		active: collector.RegisterGauge(
			MetricSubscriptionsActive,
			"Number of live subscriptions per channel",
			[]string{LabelChannel},
		),
		eventsTotal: collector.RegisterCounter(
			MetricSubscriptionEventsTotal,
			"Total number of matched events delivered to subscribers",
			[]string{LabelChannel},
		),
		skippedTotal: collector.RegisterCounter(
			MetricSubscriptionSkippedTotal,
			"Total number of records read but skipped by a subscription's matcher",
			[]string{LabelChannel},
		),
		creditGauge: collector.RegisterGauge(
			MetricSubscriptionCreditGauge,
			"Byte credit currently available to a subscription",
			[]string{LabelChannel},
		),
	}
}

// SubscriptionOpened increments the active-subscriptions gauge for channel.
func (m *SubscriptionMetrics) SubscriptionOpened(channel string) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(channel).Inc()
}

// SubscriptionClosed decrements the active-subscriptions gauge for channel.
func (m *SubscriptionMetrics) SubscriptionClosed(channel string) {
	if m == nil {
		return
	}
	m.active.WithLabelValues(channel).Dec()
}

// RecordDelivered increments the delivered-events counter for channel.
func (m *SubscriptionMetrics) RecordDelivered(channel string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(channel).Inc()
}

// RecordSkipped increments the skipped-records counter for channel.
func (m *SubscriptionMetrics) RecordSkipped(channel string) {
	if m == nil {
		return
	}
	m.skippedTotal.WithLabelValues(channel).Inc()
}

// UpdateCredit sets the current credit gauge for channel.
func (m *SubscriptionMetrics) UpdateCredit(channel string, available int64) {
	if m == nil {
		return
	}
	m.creditGauge.WithLabelValues(channel).Set(float64(available))
}
