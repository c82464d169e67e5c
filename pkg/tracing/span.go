package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const importTracerName = "cablesync-import"

// StartImportSpan starts a span tagged with the dataset scope.
func StartImportSpan(ctx context.Context, name, scopeID string) (context.Context, trace.Span) {
	return GetTracer(importTracerName).Start(ctx, name,
		trace.WithAttributes(attribute.String("scope_id", scopeID)),
	)
}

// EndSpan records err on the span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
