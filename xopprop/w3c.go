package xopprop

import (
	"context"

	"github.com/xoplog/secondary-sampling-go/xoptrace"

	"github.com/pkg/errors"
)

// W3C propagates "traceparent", "tracestate", and "baggage".
type W3C struct{}

var _ Factory = W3C{}

type w3c struct {
	traceParent string
	traceState  string
	baggage     string
}

func (W3C) Create(keys KeyFactory) (Propagation, error) {
	k, err := makeKeys(keys, "traceparent", "tracestate", "baggage")
	if err != nil {
		return nil, errors.Wrap(err, "w3c")
	}
	return w3c{
		traceParent: k[0],
		traceState:  k[1],
		baggage:     k[2],
	}, nil
}

func (p w3c) Keys() []string {
	return []string{p.traceParent, p.traceState, p.baggage}
}

func (p w3c) Injector(setter Setter) (Injector, error) {
	if err := checkSetter(setter); err != nil {
		return nil, err
	}
	return func(b xoptrace.Bundle, carrier interface{}) error {
		if b.Trace.IsZero() {
			return nil
		}
		if err := setter(carrier, p.traceParent, b.Trace.String()); err != nil {
			return err
		}
		if !b.State.IsZero() {
			if err := setter(carrier, p.traceState, b.State.String()); err != nil {
				return err
			}
		}
		if !b.Baggage.IsZero() {
			if err := setter(carrier, p.baggage, b.Baggage.String()); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

// Extractor sets Bundle.Parent to the received trace and copies it to
// Bundle.Trace with a new random span-id.
func (p w3c) Extractor(getter Getter) (Extractor, error) {
	if err := checkGetter(getter); err != nil {
		return nil, err
	}
	return func(_ context.Context, carrier interface{}) (Extracted, error) {
		b := xoptrace.NewBundle()
		h, ok := getter(carrier, p.traceParent)
		if !ok {
			return Extracted{Bundle: b}, nil
		}
		parent, ok := xoptrace.TraceFromString(h)
		if !ok {
			return Extracted{Bundle: b}, nil
		}
		b.Parent = parent
		b.Trace = parent
		b.Trace.SpanID().SetRandom()
		if ts, ok := getter(carrier, p.traceState); ok {
			b.State.SetString(ts)
		}
		if bg, ok := getter(carrier, p.baggage); ok {
			b.Baggage.SetString(bg)
		}
		return Extracted{Bundle: b, Found: true}, nil
	}, nil
}
