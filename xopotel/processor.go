package xopotel

import (
	"context"

	secondary "github.com/xoplog/secondary-sampling-go"
	"github.com/xoplog/secondary-sampling-go/xoptrace"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Context puts b into ctx for both secondary sampling and Open
// Telemetry.  Spans started with the returned context are children of
// b.Parent, the remote span.
func Context(ctx context.Context, b xoptrace.Bundle) context.Context {
	ctx = xoptrace.IntoContext(ctx, b)
	if !b.Parent.IsZero() {
		ctx = oteltrace.ContextWithRemoteSpanContext(ctx, SpanContext(b.Parent, b.State))
	}
	return ctx
}

type tagProcessor struct {
	sampling *secondary.Sampling
}

var _ sdktrace.SpanProcessor = tagProcessor{}

// TagProcessor sets the attribute named by s.TagName() on each span that
// starts in a context with mutated secondary sampling keys.  The keys are
// read when the span starts: a finished span's attributes can no longer
// be set, so secondary.Put on the Bundle after the span has started is
// not reported on that span.  Start a child span with the updated
// Bundle to report it.
func TagProcessor(s *secondary.Sampling) sdktrace.SpanProcessor {
	return tagProcessor{sampling: s}
}

func (p tagProcessor) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	b, ok := xoptrace.FromContext(parent)
	if !ok {
		return
	}
	if v, ok := p.sampling.Tag(b); ok {
		s.SetAttributes(attribute.String(p.sampling.TagName(), v))
	}
}

func (tagProcessor) OnEnd(sdktrace.ReadOnlySpan)       {}
func (tagProcessor) Shutdown(context.Context) error   { return nil }
func (tagProcessor) ForceFlush(context.Context) error { return nil }
