/*
Package xopotel connects secondary sampling with Open Telemetry.

# Primary

Primary wraps any Open Telemetry TextMapPropagator, for example
propagation.TraceContext{} or a composite with propagation.Baggage{}, so
that it can be the primary mechanism of a secondary.Sampling:

	s, err := secondary.New(
		secondary.WithPropagation(xopotel.Primary(propagation.TraceContext{})),
		secondary.WithSampler(sampler),
	)

# TagProcessor

TagProcessor is an sdktrace.SpanProcessor that records the mutated
secondary sampling keys of the trace context found in a span's parent
context.  Use Context to put an extracted Bundle where both secondary
sampling and Open Telemetry can find it:

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(xopotel.TagProcessor(s)),
		sdktrace.WithBatcher(exporter),
	)
	ctx = xopotel.Context(ctx, extracted.Bundle)
	ctx, span := tracerProvider.Tracer("").Start(ctx, "request")
*/
package xopotel
