package otelx

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// w3c is used instead of the global propagator because the outbox stores
// exactly the two W3C fields, whatever propagators the process has installed.
var w3c = propagation.TraceContext{}

// TraceContextStrings returns the W3C traceparent and tracestate of the span
// in ctx, or empty strings when ctx carries no valid span. The outbox stores
// them with each event so publishing continues the booking's trace.
func TraceContextStrings(ctx context.Context) (traceparent string, tracestate string) {
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return "", ""
	}
	carrier := propagation.MapCarrier{}
	w3c.Inject(ctx, carrier)
	return carrier.Get("traceparent"), carrier.Get("tracestate")
}

// ContextWithTraceContext makes the stored span the remote parent of ctx. A
// missing or malformed traceparent leaves ctx unchanged, since tracestate
// means nothing without it.
func ContextWithTraceContext(ctx context.Context, traceparent string, tracestate string) context.Context {
	if traceparent == "" {
		return ctx
	}
	carrier := propagation.MapCarrier{"traceparent": traceparent}
	if tracestate != "" {
		carrier["tracestate"] = tracestate
	}
	out := w3c.Extract(ctx, carrier)
	if !trace.SpanContextFromContext(out).IsValid() {
		return ctx
	}
	return out
}
