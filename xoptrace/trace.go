/*
Package xoptrace has the data structures that identify a span of work
as it travels between processes: the W3C trace (version, trace-id,
span-id, flags), the opaque "tracestate" and "baggage" values, and the
Bundle that groups them into a trace context.

See https://www.w3.org/TR/trace-context/ and
https://github.com/openzipkin/b3-propagation

A Bundle can also carry Extensions: extra per-context data that is
forked (copied) whenever a child context is derived.
*/
package xoptrace

import (
	"regexp"
)

// Trace represents one "traceparent" value.
//
// The "parent-id" field of the W3C header is misnamed: it is the span-id
// of the sender.  Within a Bundle, Parent holds the trace as received and
// Trace holds the trace of the current span.
type Trace struct {
	version HexBytes1

	// This is an identifier that should flow through all aspects of a
	// request.
	traceID HexBytes16

	spanID HexBytes8

	flags HexBytes1

	headerString string // version + traceID + spanID + flags

	initialized bool
}

const zeroTraceString = "00-00000000000000000000000000000000-0000000000000000-00"

const sampledFlag = 0x01

func NewTrace() Trace {
	var trace Trace
	trace.initialize()
	return trace
}

var traceParentRE = regexp.MustCompile(`^([0-9a-f]{2})-([0-9a-f]{32})-([0-9a-f]{16})-([0-9a-f]{2})$`)

// TraceFromString parses a "traceparent" value. Example:
//
//	00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01
//
// Values with version ff, or an all-zero trace-id or span-id are rejected.
func TraceFromString(s string) (Trace, bool) {
	m := traceParentRE.FindStringSubmatch(s)
	if m == nil || m[1] == "ff" {
		return Trace{}, false
	}
	trace := NewTrace()
	trace.Version().SetString(m[1])
	trace.TraceID().SetString(m[2])
	trace.SpanID().SetString(m[3])
	trace.Flags().SetString(m[4])
	if trace.traceID.IsZero() || trace.spanID.IsZero() {
		return Trace{}, false
	}
	return trace, true
}

func (t *Trace) Version() WrappedHexBytes1 {
	t.initialize()
	return WrappedHexBytes1{HexBytes1: &t.version, trace: t}
}

func (t *Trace) TraceID() WrappedHexBytes16 {
	t.initialize()
	return WrappedHexBytes16{HexBytes16: &t.traceID, trace: t}
}

func (t *Trace) SpanID() WrappedHexBytes8 {
	t.initialize()
	return WrappedHexBytes8{HexBytes8: &t.spanID, trace: t}
}

func (t *Trace) Flags() WrappedHexBytes1 {
	t.initialize()
	return WrappedHexBytes1{HexBytes1: &t.flags, trace: t}
}

func (t Trace) GetVersion() HexBytes1  { return t.version.initialized(t) }
func (t Trace) GetTraceID() HexBytes16 { return t.traceID.initialized(t) }
func (t Trace) GetSpanID() HexBytes8   { return t.spanID.initialized(t) }
func (t Trace) GetFlags() HexBytes1    { return t.flags.initialized(t) }
func (t Trace) Copy() Trace            { return t }

func (t Trace) IsSampled() bool { return t.flags.b[0]&sampledFlag != 0 }

// SetSampled sets or clears the sampled bit of the flags, leaving
// other bits alone.
func (t *Trace) SetSampled(sampled bool) {
	f := t.flags.b[0] &^ sampledFlag
	if sampled {
		f |= sampledFlag
	}
	t.Flags().SetArray([1]byte{f})
}

func (t Trace) IsZero() bool {
	return t.traceID.IsZero() && t.spanID.IsZero()
}

func (t Trace) String() string {
	if !t.initialized {
		return zeroTraceString
	}
	return t.headerString
}

// RebuildSetNonZero gives the trace random ids where they are missing.
func (t *Trace) RebuildSetNonZero() {
	t.initialize()
	if t.traceID.IsZero() {
		t.TraceID().SetRandom()
	}
	if t.spanID.IsZero() {
		t.SpanID().SetRandom()
	}
}

func (x HexBytes1) initialized(t Trace) HexBytes1 {
	if !t.initialized {
		x.initialize()
	}
	return x
}

func (x HexBytes8) initialized(t Trace) HexBytes8 {
	if !t.initialized {
		x.initialize()
	}
	return x
}

func (x HexBytes16) initialized(t Trace) HexBytes16 {
	if !t.initialized {
		x.initialize()
	}
	return x
}

func (t *Trace) initialize() {
	if !t.initialized {
		t.initialized = true
		t.version.initialize()
		t.traceID.initialize()
		t.spanID.initialize()
		t.flags.initialize()
		t.rebuild()
	}
}

func (t *Trace) rebuild() {
	// 0         3         36       53
	// version + traceID + spanID + flags
	b := make([]byte, 0, len(zeroTraceString))
	b = append(b, t.version.h[:]...)
	b = append(b, '-')
	b = append(b, t.traceID.h[:]...)
	b = append(b, '-')
	b = append(b, t.spanID.h[:]...)
	b = append(b, '-')
	b = append(b, t.flags.h[:]...)
	t.headerString = string(b)
}
