package connection

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mewbase/mewbase/internal/tracing"
)

// tracer follows the teacher's per-domain convention (internal/storage/queues,
// internal/storage/kv, each with their own package-level otel.Tracer and a
// tracing.go of Start<Op>Span helpers) rather than threading a
// tracing.Provider through Deps: NewProvider already installs the
// configured provider as the process-global one, so any otel.Tracer call
// picks it up, or the otel no-op default when tracing is disabled.
var tracer = otel.Tracer("mewbase.connection")

// startPublishSpan starts a span around one PUBLISH's append.
func startPublishSpan(channel string) trace.Span {
	_, span := tracer.Start(context.Background(), "mewbase.publish",
		trace.WithSpanKind(trace.SpanKindProducer),
	)
	span.SetAttributes(attribute.String(tracing.AttrChannel, channel))
	return span
}

// finishPublishSpan records the assigned record number on success, sets
// span status from err, and ends the span (the teacher's
// status-on-error convention, internal/api/grpc/tracing.go).
func finishPublishSpan(span trace.Span, recordNumber int64, err error) {
	if err == nil {
		span.SetAttributes(attribute.Int64(tracing.AttrRecordNumber, recordNumber))
	}
	endSpan(span, err)
}

// startQuerySpan starts a span around one QUERY, point lookup or named.
func startQuerySpan(queryID int32, binder, name string) trace.Span {
	_, span := tracer.Start(context.Background(), "mewbase.query",
		trace.WithSpanKind(trace.SpanKindServer),
	)
	attrs := []attribute.KeyValue{attribute.Int(tracing.AttrQueryID, int(queryID))}
	if binder != "" {
		attrs = append(attrs, attribute.String(tracing.AttrBinder, binder))
	}
	if name != "" {
		attrs = append(attrs, attribute.String(tracing.AttrQueryName, name))
	}
	span.SetAttributes(attrs...)
	return span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
