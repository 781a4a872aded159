package otelx

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

func TestTraceContextRoundTrip(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	state, _ := trace.ParseTraceState("booking=1")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled, TraceState: state})

	tp, ts := TraceContextStrings(trace.ContextWithSpanContext(context.Background(), sc))
	if tp != "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01" || ts != "booking=1" {
		t.Fatalf("unexpected trace context %q %q", tp, ts)
	}

	out := trace.SpanContextFromContext(ContextWithTraceContext(context.Background(), tp, ts))
	if !out.IsRemote() || out.TraceID() != traceID || out.SpanID() != spanID {
		t.Fatalf("unexpected span context %+v", out)
	}
	if out.TraceState().Get("booking") != "1" {
		t.Fatalf("tracestate lost: %s", out.TraceState())
	}
}

func TestContextWithTraceContextIgnoresBadInput(t *testing.T) {
	ctx := context.Background()
	if got := ContextWithTraceContext(ctx, "", "booking=1"); got != ctx {
		t.Fatalf("tracestate alone must not change the context")
	}
	if got := ContextWithTraceContext(ctx, "not-a-traceparent", ""); got != ctx {
		t.Fatalf("malformed traceparent must not change the context")
	}
}
