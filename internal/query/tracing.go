package query

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mewbase/mewbase/internal/tracing"
)

var tracer = otel.Tracer("mewbase.query")

// startResultSpan starts a span around one result delivered by a running
// QueryExecution (spec §4.10's "query execution").
func startResultSpan(queryID int32, docID string) trace.Span {
	_, span := tracer.Start(context.Background(), "mewbase.query.result",
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	span.SetAttributes(attribute.Int(tracing.AttrQueryID, int(queryID)))
	if docID != "" {
		span.SetAttributes(attribute.String(tracing.AttrDocID, docID))
	}
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
