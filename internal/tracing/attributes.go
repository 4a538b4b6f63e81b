package tracing

// Span attribute keys following OpenTelemetry semantic conventions
const (
	// Resource attributes
	AttrChannel  = "mewbase.channel"
	AttrBinder   = "mewbase.binder"
	AttrDocID    = "mewbase.doc_id"

	// Connection attributes
	AttrConnectionID = "mewbase.connection.id"

	// Subscription attributes
	AttrSubscriptionID = "mewbase.subscription.id"
	AttrDurableID      = "mewbase.durable_id"
	AttrStartPos       = "mewbase.start_pos"
	AttrMatcher        = "mewbase.matcher"

	// Publish attributes
	AttrRecordNumber = "mewbase.record_number"
	AttrEventBytes   = "mewbase.event.bytes"

	// Query attributes
	AttrQueryID   = "mewbase.query.id"
	AttrQueryName = "mewbase.query.name"

	// Frame attributes
	AttrFrameKind = "mewbase.frame.kind"

	// Operation attributes
	AttrOperation = "mewbase.operation"
	AttrStatus    = "mewbase.status"
	AttrError     = "mewbase.error"
)
