package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChannelMetrics tracks channel log metrics.
type ChannelMetrics struct {
	recordsTotal      *prometheus.CounterVec
	bytesTotal        *prometheus.CounterVec
	appendDuration    *prometheus.HistogramVec
	chunkRotations    *prometheus.CounterVec
	lastRecordNumber  *prometheus.GaugeVec
}

// NewChannelMetrics initializes channel log metrics with the collector.
func NewChannelMetrics(collector *Collector) *ChannelMetrics {
	return &ChannelMetrics{
		recordsTotal: collector.RegisterCounter(
			MetricChannelRecordsTotal,
			"Total number of records appended to a channel",
			[]string{LabelChannel},
		),
		bytesTotal: collector.RegisterCounter(
			MetricChannelBytesTotal,
			"Total number of payload bytes appended to a channel",
			[]string{LabelChannel},
		),
		appendDuration: collector.RegisterHistogram(
			MetricChannelAppendDuration,
			"Duration of channel append operations in seconds",
			[]string{LabelChannel},
			prometheus.DefBuckets,
		),
		chunkRotations: collector.RegisterCounter(
			MetricChannelChunkRotations,
			"Total number of chunk file rotations for a channel",
			[]string{LabelChannel},
		),
		lastRecordNumber: collector.RegisterGauge(
			MetricChannelLastRecordNumber,
			"Record number of the most recently appended record",
			[]string{LabelChannel},
		),
	}
}

// RecordAppend records one PUBLISH's successful persist.
func (m *ChannelMetrics) RecordAppend(channel string, bytes int, duration time.Duration, recordNumber int64) {
	if m == nil {
		return
	}
	m.recordsTotal.WithLabelValues(channel).Inc()
	m.bytesTotal.WithLabelValues(channel).Add(float64(bytes))
	m.appendDuration.WithLabelValues(channel).Observe(duration.Seconds())
	m.lastRecordNumber.WithLabelValues(channel).Set(float64(recordNumber))
}

// RecordChunkRotation increments the rotation counter for channel.
func (m *ChannelMetrics) RecordChunkRotation(channel string) {
	if m == nil {
		return
	}
	m.chunkRotations.WithLabelValues(channel).Inc()
}
