package xoptrace

import (
	"reflect"

	"github.com/muir/list"
)

// Extension is per-context data carried by a Bundle alongside the
// W3C fields.  Fork must return an independent copy: nothing done to
// the copy may be visible through the original and vice versa.
type Extension interface {
	Fork() Extension
}

// Bundle is a trace context: the trace as received (Parent), the trace
// of the current span (Trace), the opaque tracestate and baggage, and
// any Extensions.
//
// Bundles are values.  Assignment shares Extensions; Copy and Child
// fork them.
type Bundle struct {
	Parent  Trace
	Trace   Trace
	State   State
	Baggage Baggage

	extensions []Extension
}

func NewBundle() Bundle {
	return Bundle{
		Parent: NewTrace(),
		Trace:  NewTrace(),
	}
}

// Copy returns a Bundle whose Extensions have all been forked.
func (b Bundle) Copy() Bundle {
	n := Bundle{
		Parent:  b.Parent.Copy(),
		Trace:   b.Trace.Copy(),
		State:   b.State.Copy(),
		Baggage: b.Baggage.Copy(),
	}
	if len(b.extensions) != 0 {
		n.extensions = make([]Extension, len(b.extensions))
		for i, e := range b.extensions {
			n.extensions[i] = e.Fork()
		}
	}
	return n
}

// Child derives the context of a new span within the same trace: the
// current trace becomes the parent and the span gets a fresh random id.
func (b Bundle) Child() Bundle {
	n := b.Copy()
	n.Parent = b.Trace.Copy()
	n.Trace.RebuildSetNonZero()
	n.Trace.SpanID().SetRandom()
	return n
}

// Extensions returns a copy of the list of extensions.
func (b Bundle) Extensions() []Extension {
	return list.Copy(b.extensions)
}

// WithExtension returns a Bundle that carries e, replacing any existing
// extension of the same concrete type.  The receiver is not modified.
func (b Bundle) WithExtension(e Extension) Bundle {
	t := reflect.TypeOf(e)
	for i, existing := range b.extensions {
		if reflect.TypeOf(existing) == t {
			b.extensions = list.Copy(b.extensions)
			b.extensions[i] = e
			return b
		}
	}
	extensions := make([]Extension, len(b.extensions), len(b.extensions)+1)
	copy(extensions, b.extensions)
	b.extensions = append(extensions, e)
	return b
}

// FindExtension returns the extension of type T, if the bundle has one.
func FindExtension[T Extension](b Bundle) (T, bool) {
	for _, e := range b.extensions {
		if t, ok := e.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}
