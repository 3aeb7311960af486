package xopotel

import (
	"context"

	"github.com/xoplog/secondary-sampling-go/xopprop"
	"github.com/xoplog/secondary-sampling-go/xoptrace"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/propagation"
	oteltrace "go.opentelemetry.io/otel/trace"
)

type primary struct {
	propagator propagation.TextMapPropagator
}

var _ xopprop.Factory = primary{}

// Primary adapts an Open Telemetry propagator to be an xopprop.Factory.
func Primary(p propagation.TextMapPropagator) xopprop.Factory {
	return primary{propagator: p}
}

type otelPropagation struct {
	propagator propagation.TextMapPropagator
	keys       []string
	fieldToKey map[string]string
	makeKey    xopprop.KeyFactory
}

func (p primary) Create(keys xopprop.KeyFactory) (xopprop.Propagation, error) {
	if keys == nil {
		return nil, errors.New("key factory == nil")
	}
	fields := p.propagator.Fields()
	o := otelPropagation{
		propagator: p.propagator,
		keys:       make([]string, 0, len(fields)),
		fieldToKey: make(map[string]string, len(fields)),
		makeKey:    keys,
	}
	for _, field := range fields {
		k, err := keys(field)
		if err != nil {
			return nil, errors.Wrapf(err, "create key for %s", field)
		}
		if _, dup := o.fieldToKey[field]; dup {
			continue
		}
		o.fieldToKey[field] = k
		o.keys = append(o.keys, k)
	}
	return o, nil
}

func (p otelPropagation) Keys() []string {
	return append([]string(nil), p.keys...)
}

// key maps a propagator's field to a carrier key.  Fields that the
// propagator did not declare are converted on the fly.
func (p otelPropagation) key(field string) (string, bool) {
	if k, ok := p.fieldToKey[field]; ok {
		return k, true
	}
	k, err := p.makeKey(field)
	return k, err == nil
}

type getCarrier struct {
	p       otelPropagation
	getter  xopprop.Getter
	carrier interface{}
}

var _ propagation.TextMapCarrier = getCarrier{}

func (c getCarrier) Get(field string) string {
	k, ok := c.p.key(field)
	if !ok {
		return ""
	}
	v, _ := c.getter(c.carrier, k)
	return v
}

func (c getCarrier) Set(string, string) {}

func (c getCarrier) Keys() []string {
	var present []string
	for field, k := range c.p.fieldToKey {
		if _, ok := c.getter(c.carrier, k); ok {
			present = append(present, field)
		}
	}
	return present
}

type setCarrier struct {
	p       otelPropagation
	setter  xopprop.Setter
	carrier interface{}
	err     error
}

var _ propagation.TextMapCarrier = &setCarrier{}

func (c *setCarrier) Get(string) string { return "" }
func (c *setCarrier) Keys() []string    { return nil }

func (c *setCarrier) Set(field, value string) {
	if c.err != nil {
		return
	}
	k, ok := c.p.key(field)
	if !ok {
		c.err = errors.Wrapf(xopprop.ErrInvalidKey, "%s", field)
		return
	}
	c.err = c.setter(c.carrier, k, value)
}

func (p otelPropagation) Injector(setter xopprop.Setter) (xopprop.Injector, error) {
	if setter == nil {
		return nil, errors.WithStack(xopprop.ErrNilSetter)
	}
	return func(b xoptrace.Bundle, carrier interface{}) error {
		ctx := context.Background()
		if !b.Trace.IsZero() {
			ctx = oteltrace.ContextWithSpanContext(ctx, SpanContext(b.Trace, b.State))
		}
		if !b.Baggage.IsZero() {
			if bag, err := baggage.Parse(b.Baggage.String()); err == nil {
				ctx = baggage.ContextWithBaggage(ctx, bag)
			}
		}
		c := &setCarrier{p: p, setter: setter, carrier: carrier}
		p.propagator.Inject(ctx, c)
		return c.err
	}, nil
}

// Extractor sets Bundle.Parent to the received span context and copies
// it to Bundle.Trace with a new random span-id.
func (p otelPropagation) Extractor(getter xopprop.Getter) (xopprop.Extractor, error) {
	if getter == nil {
		return nil, errors.WithStack(xopprop.ErrNilGetter)
	}
	return func(_ context.Context, carrier interface{}) (xopprop.Extracted, error) {
		ctx := p.propagator.Extract(context.Background(), getCarrier{p: p, getter: getter, carrier: carrier})
		b := xoptrace.NewBundle()
		if bag := baggage.FromContext(ctx); bag.Len() != 0 {
			b.Baggage.SetString(bag.String())
		}
		sc := oteltrace.SpanContextFromContext(ctx)
		if !sc.IsValid() {
			return xopprop.Extracted{Bundle: b}, nil
		}
		b.Parent = Trace(sc)
		b.Trace = b.Parent
		b.Trace.SpanID().SetRandom()
		if ts := sc.TraceState().String(); ts != "" {
			b.State.SetString(ts)
		}
		return xopprop.Extracted{Bundle: b, Found: true}, nil
	}, nil
}

// Trace converts an Open Telemetry span context.
func Trace(sc oteltrace.SpanContext) xoptrace.Trace {
	t := xoptrace.NewTrace()
	t.TraceID().SetArray([16]byte(sc.TraceID()))
	t.SpanID().SetArray([8]byte(sc.SpanID()))
	t.Flags().SetArray([1]byte{byte(sc.TraceFlags())})
	return t
}

// SpanContext converts a trace.  A tracestate that Open Telemetry cannot
// parse is dropped.
func SpanContext(t xoptrace.Trace, state xoptrace.State) oteltrace.SpanContext {
	var ts oteltrace.TraceState
	if !state.IsZero() {
		if parsed, err := oteltrace.ParseTraceState(state.String()); err == nil {
			ts = parsed
		}
	}
	return oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
		TraceID:    oteltrace.TraceID(t.GetTraceID().Array()),
		SpanID:     oteltrace.SpanID(t.GetSpanID().Array()),
		TraceFlags: oteltrace.TraceFlags(t.GetFlags().Array()[0]),
		TraceState: ts,
	})
}
