// Copyright 2026 The Dogship Authors
// SPDX-License-Identifier: Apache-2.0

package client

import "context"

// SpanContext identifies the APM trace and span a log event was
// emitted under. The identifiers appear on the wire as the
// dd.trace_id and dd.span_id attributes, which is what ties a log
// line to a flame graph in the trace view.
type SpanContext struct {
	TraceID uint64
	SpanID  uint64
}

// Correlator extracts the active span identifiers from a context.
// The client calls it once per log event; implementations must be
// cheap and safe for concurrent use.
//
// Tracing libraries adapt their own context propagation by
// implementing this interface. Applications without a tracer get
// [ContextCorrelator], which reads identifiers installed explicitly
// with [WithSpan].
type Correlator interface {
	// Active returns the span identifiers carried by ctx. ok is
	// false when no span is active, in which case the log event
	// carries no trace fields.
	Active(ctx context.Context) (SpanContext, bool)
}

type spanContextKey struct{}

// WithSpan returns a context carrying span identifiers for log
// correlation, readable by [SpanFromContext] and the default
// [ContextCorrelator].
func WithSpan(ctx context.Context, span SpanContext) context.Context {
	return context.WithValue(ctx, spanContextKey{}, span)
}

// SpanFromContext returns the span identifiers installed by
// [WithSpan], with ok false when the context carries none.
func SpanFromContext(ctx context.Context) (SpanContext, bool) {
	span, ok := ctx.Value(spanContextKey{}).(SpanContext)
	return span, ok
}

// ContextCorrelator is the default [Correlator]: it reads span
// identifiers installed by [WithSpan] and knows nothing about any
// tracing library.
type ContextCorrelator struct{}

// Active implements [Correlator].
func (ContextCorrelator) Active(ctx context.Context) (SpanContext, bool) {
	return SpanFromContext(ctx)
}
