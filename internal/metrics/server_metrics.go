package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServerMetrics tracks server-level metrics: connections, frame dispatch,
// storage footprint, and query execution.
type ServerMetrics struct {
	connectionsActive *prometheus.GaugeVec
	framesTotal       *prometheus.CounterVec
	frameDuration     *prometheus.HistogramVec
	storageSizeBytes  *prometheus.GaugeVec
	queriesTotal      *prometheus.CounterVec
	queryDocsStreamed *prometheus.CounterVec
}

// NewServerMetrics initializes server-level metrics with the collector.
func NewServerMetrics(collector *Collector) *ServerMetrics {
	return &ServerMetrics{
		connectionsActive: collector.RegisterGauge(
			MetricConnectionsActive,
			"Number of currently open connections",
			[]string{LabelComponent},
		),
		framesTotal: collector.RegisterCounter(
			MetricFramesTotal,
			"Total frames dispatched by kind and outcome",
			[]string{LabelFrameKind, LabelStatus},
		),
		frameDuration: collector.RegisterHistogram(
			MetricFrameDuration,
			"Frame handling latency in seconds",
			[]string{LabelFrameKind},
			prometheus.DefBuckets,
		),
		storageSizeBytes: collector.RegisterGauge(
			MetricStorageSizeBytes,
			"Storage size by component in bytes",
			[]string{LabelComponent},
		),
		queriesTotal: collector.RegisterCounter(
			MetricQueriesTotal,
			"Total QUERY requests by named query",
			[]string{LabelQueryName},
		),
		queryDocsStreamed: collector.RegisterCounter(
			MetricQueryDocsStreamed,
			"Total documents streamed to query executions",
			[]string{LabelQueryName},
		),
	}
}

// ConnectionOpened increments the active-connections gauge.
func (m *ServerMetrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.connectionsActive.WithLabelValues("server").Inc()
}

// ConnectionClosed decrements the active-connections gauge.
func (m *ServerMetrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.connectionsActive.WithLabelValues("server").Dec()
}

// RecordFrame records one dispatched frame's outcome and handling latency.
func (m *ServerMetrics) RecordFrame(kind, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(kind, status).Inc()
	m.frameDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// UpdateStorageSize updates the storage size gauge for a component.
func (m *ServerMetrics) UpdateStorageSize(component string, size int64) {
	if m == nil {
		return
	}
	m.storageSizeBytes.WithLabelValues(component).Set(float64(size))
}

// RecordQuery records one QUERY request and the documents it streamed.
func (m *ServerMetrics) RecordQuery(queryName string, docsStreamed int) {
	if m == nil {
		return
	}
	m.queriesTotal.WithLabelValues(queryName).Inc()
	m.queryDocsStreamed.WithLabelValues(queryName).Add(float64(docsStreamed))
}
