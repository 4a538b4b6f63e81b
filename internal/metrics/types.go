package metrics

// Metric name constants following Prometheus naming conventions
// Format: mewbase_{component}_{metric}_{unit}

// Channel (log) metrics
const (
	MetricChannelRecordsTotal      = "mewbase_channel_records_total"
	MetricChannelBytesTotal        = "mewbase_channel_bytes_total"
	MetricChannelAppendDuration    = "mewbase_channel_append_duration_seconds"
	MetricChannelChunkRotations    = "mewbase_channel_chunk_rotations_total"
	MetricChannelLastRecordNumber  = "mewbase_channel_last_record_number"
)

// Subscription metrics
const (
	MetricSubscriptionsActive       = "mewbase_subscriptions_active"
	MetricSubscriptionEventsTotal   = "mewbase_subscription_events_delivered_total"
	MetricSubscriptionSkippedTotal  = "mewbase_subscription_events_skipped_total"
	MetricSubscriptionCreditGauge   = "mewbase_subscription_credit_available_bytes"
)

// Durable cursor metrics
const (
	MetricDurableCursorLag      = "mewbase_durable_cursor_lag_records"
	MetricDurableCursorAdvances = "mewbase_durable_cursor_advances_total"
)

// Server-level metrics
const (
	MetricConnectionsActive  = "mewbase_connections_active"
	MetricFramesTotal        = "mewbase_frames_total"
	MetricFrameDuration      = "mewbase_frame_handle_duration_seconds"
	MetricStorageSizeBytes   = "mewbase_storage_size_bytes"
	MetricQueriesTotal       = "mewbase_queries_total"
	MetricQueryDocsStreamed  = "mewbase_query_documents_streamed_total"
)

// Label name constants
const (
	LabelChannel    = "channel"
	LabelDurableID  = "durable_id"
	LabelBinder     = "binder"
	LabelQueryName  = "query_name"
	LabelFrameKind  = "frame_kind"
	LabelStatus     = "status"
	LabelComponent  = "component"
)
