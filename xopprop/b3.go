package xopprop

import (
	"context"
	"regexp"

	"github.com/xoplog/secondary-sampling-go/xoptrace"

	"github.com/pkg/errors"
)

// B3 propagates Zipkin's B3 headers.
// See https://github.com/openzipkin/b3-propagation
//
// Both the combined "b3" header and the X-B3-* headers are extracted;
// the combined header wins when both are present.
type B3 struct {
	// SingleHeader injects "b3" instead of the X-B3-* headers.
	SingleHeader bool
}

var _ Factory = B3{}

type b3 struct {
	single       bool
	combined     string
	traceID      string
	spanID       string
	parentSpanID string
	sampled      string
	flags        string
}

func (f B3) Create(keys KeyFactory) (Propagation, error) {
	k, err := makeKeys(keys, "b3", "x-b3-traceid", "x-b3-spanid", "x-b3-parentspanid", "x-b3-sampled", "x-b3-flags")
	if err != nil {
		return nil, errors.Wrap(err, "b3")
	}
	return b3{
		single:       f.SingleHeader,
		combined:     k[0],
		traceID:      k[1],
		spanID:       k[2],
		parentSpanID: k[3],
		sampled:      k[4],
		flags:        k[5],
	}, nil
}

func (p b3) Keys() []string {
	return []string{p.combined, p.traceID, p.spanID, p.parentSpanID, p.sampled, p.flags}
}

func (p b3) Injector(setter Setter) (Injector, error) {
	if err := checkSetter(setter); err != nil {
		return nil, err
	}
	return func(b xoptrace.Bundle, carrier interface{}) error {
		if b.Trace.IsZero() {
			return nil
		}
		sampled := "0"
		if b.Trace.IsSampled() {
			sampled = "1"
		}
		if p.single {
			h := b.Trace.GetTraceID().String() + "-" + b.Trace.GetSpanID().String() + "-" + sampled
			if !b.Parent.GetSpanID().IsZero() {
				h += "-" + b.Parent.GetSpanID().String()
			}
			return setter(carrier, p.combined, h)
		}
		if err := setter(carrier, p.traceID, b.Trace.GetTraceID().String()); err != nil {
			return err
		}
		if err := setter(carrier, p.spanID, b.Trace.GetSpanID().String()); err != nil {
			return err
		}
		if !b.Parent.GetSpanID().IsZero() {
			if err := setter(carrier, p.parentSpanID, b.Parent.GetSpanID().String()); err != nil {
				return err
			}
		}
		return setter(carrier, p.sampled, sampled)
	}, nil
}

var b3RE = regexp.MustCompile(`^([a-fA-F0-9]{32}|[a-fA-F0-9]{16})-([a-fA-F0-9]{16})(?:-(0|1|true|false|d)(?:-([a-fA-F0-9]{16}))?)?$`)

func (p b3) Extractor(getter Getter) (Extractor, error) {
	if err := checkGetter(getter); err != nil {
		return nil, err
	}
	return func(_ context.Context, carrier interface{}) (Extracted, error) {
		b := xoptrace.NewBundle()
		if h, ok := getter(carrier, p.combined); ok && h != "" {
			return setByB3Header(b, h), nil
		}
		traceID, ok := getter(carrier, p.traceID)
		if !ok {
			if s, ok := getter(carrier, p.sampled); ok {
				setByB3Sampled(&b.Trace, s)
			}
			return Extracted{Bundle: b}, nil
		}
		b.Trace.TraceID().SetString(traceID)
		if b.Trace.TraceID().IsZero() {
			return Extracted{Bundle: xoptrace.NewBundle()}, nil
		}
		if s, ok := getter(carrier, p.sampled); ok {
			setByB3Sampled(&b.Trace, s)
		}
		if f, ok := getter(carrier, p.flags); ok && f == "1" {
			setByB3Sampled(&b.Trace, "d")
		}
		b.Parent = b.Trace
		if parentSpanID, ok := getter(carrier, p.parentSpanID); ok {
			b.Parent.SpanID().SetString(parentSpanID)
		} else {
			b.Parent.SpanID().SetZero()
		}
		if spanID, ok := getter(carrier, p.spanID); ok {
			b.Trace.SpanID().SetString(spanID)
		}
		if b.Trace.SpanID().IsZero() {
			b.Trace.SpanID().SetRandom()
		}
		return Extracted{Bundle: b, Found: true}, nil
	}, nil
}

// setByB3Header handles the combined header:
//
//	b3: traceid-spanid-sampled-parentspanid
//
// or a bare sampling decision.
func setByB3Header(b xoptrace.Bundle, h string) Extracted {
	switch h {
	case "0", "1", "true", "false", "d":
		setByB3Sampled(&b.Trace, h)
		return Extracted{Bundle: b}
	}
	m := b3RE.FindStringSubmatch(h)
	if m == nil {
		return Extracted{Bundle: b}
	}
	b.Parent.TraceID().SetString(m[1])
	setByB3Sampled(&b.Parent, m[3])
	if m[4] == "" {
		b.Parent.SpanID().SetZero()
	} else {
		b.Parent.SpanID().SetString(m[4])
	}
	b.Trace = b.Parent
	b.Trace.SpanID().SetString(m[2])
	return Extracted{Bundle: b, Found: true}
}

// setByB3Sampled processes the "X-B3-Sampled" header or the sampled
// portion of a combined "b3" header.  Debug ("d") counts as sampled.
func setByB3Sampled(t *xoptrace.Trace, h string) {
	switch h {
	case "1", "true", "d":
		t.SetSampled(true)
	case "0", "false":
		t.SetSampled(false)
	}
}
