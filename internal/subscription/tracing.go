package subscription

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mewbase/mewbase/internal/tracing"
)

var tracer = otel.Tracer("mewbase.subscription")

// startDeliverySpan starts a span around one record delivered to a
// subscriber (spec §4.5's "subscription delivery").
func startDeliverySpan(channel string, subID int32, recordNumber int64) trace.Span {
	_, span := tracer.Start(context.Background(), "mewbase.subscription.deliver",
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
	span.SetAttributes(
		attribute.String(tracing.AttrChannel, channel),
		attribute.Int(tracing.AttrSubscriptionID, int(subID)),
		attribute.Int64(tracing.AttrRecordNumber, recordNumber),
	)
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
