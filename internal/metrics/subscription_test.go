package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSubscriptionMetrics(t *testing.T) {
	collector := NewCollector()
	metrics := NewSubscriptionMetrics(collector)
	require.NotNil(t, metrics)
}

func TestSubscriptionMetrics_OpenCloseAndDeliver(t *testing.T) {
	collector := NewCollector()
	metrics := NewSubscriptionMetrics(collector)

	metrics.SubscriptionOpened("orders")
	metrics.RecordDelivered("orders")
	metrics.RecordSkipped("orders")
	metrics.UpdateCredit("orders", 4096)
	metrics.SubscriptionClosed("orders")

	registry := collector.GetRegistry()
	metricFamilies, err := registry.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range metricFamilies {
		if mf.GetName() == MetricSubscriptionEventsTotal {
			found = true
			assert.Greater(t, len(mf.GetMetric()), 0)
			break
		}
	}
	assert.True(t, found, "subscription events total metric should be found")
}

func TestSubscriptionMetrics_NilSafety(t *testing.T) {
	var metrics *SubscriptionMetrics

	metrics.SubscriptionOpened("orders")
	metrics.SubscriptionClosed("orders")
	metrics.RecordDelivered("orders")
	metrics.RecordSkipped("orders")
	metrics.UpdateCredit("orders", 1)
}
