package metrics

import "github.com/prometheus/client_golang/prometheus"

// DurableCursorMetrics tracks durable subscription cursor progress.
type DurableCursorMetrics struct {
	lag      *prometheus.GaugeVec
	advances *prometheus.CounterVec
}

// NewDurableCursorMetrics initializes durable cursor metrics with the collector.
func NewDurableCursorMetrics(collector *Collector) *DurableCursorMetrics {
	return &DurableCursorMetrics{
		lag: collector.RegisterGauge(
			MetricDurableCursorLag,
			"Records between a durable cursor's position and the channel tail",
			[]string{LabelChannel, LabelDurableID},
		),
		advances: collector.RegisterCounter(
			MetricDurableCursorAdvances,
			"Total number of durable cursor advances via ACKEV",
			[]string{LabelChannel, LabelDurableID},
		),
	}
}

// UpdateLag sets the lag gauge for (channel, durableID).
func (m *DurableCursorMetrics) UpdateLag(channel, durableID string, lag int64) {
	if m == nil {
		return
	}
	m.lag.WithLabelValues(channel, durableID).Set(float64(lag))
}

// RecordAdvance increments the advance counter for (channel, durableID).
func (m *DurableCursorMetrics) RecordAdvance(channel, durableID string) {
	if m == nil {
		return
	}
	m.advances.WithLabelValues(channel, durableID).Inc()
}
