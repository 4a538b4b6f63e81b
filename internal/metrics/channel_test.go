package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChannelMetrics(t *testing.T) {
	collector := NewCollector()
	metrics := NewChannelMetrics(collector)
	require.NotNil(t, metrics)
}

func TestChannelMetrics_RecordAppend(t *testing.T) {
	collector := NewCollector()
	metrics := NewChannelMetrics(collector)

	metrics.RecordAppend("orders", 128, 5*time.Millisecond, 3)

	registry := collector.GetRegistry()
	metricFamilies, err := registry.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() == MetricChannelRecordsTotal {
			found = true
			assert.Greater(t, len(mf.GetMetric()), 0)
			break
		}
	}
	assert.True(t, found, "channel records total metric should be found")
}

func TestChannelMetrics_RecordChunkRotation(t *testing.T) {
	collector := NewCollector()
	metrics := NewChannelMetrics(collector)

	metrics.RecordChunkRotation("orders")

	registry := collector.GetRegistry()
	metricFamilies, err := registry.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() == MetricChannelChunkRotations {
			found = true
			break
		}
	}
	assert.True(t, found, "chunk rotations counter should be found")
}

func TestChannelMetrics_NilSafety(t *testing.T) {
	var metrics *ChannelMetrics

	metrics.RecordAppend("orders", 1, time.Second, 1)
	metrics.RecordChunkRotation("orders")
}
