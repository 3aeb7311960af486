package secondary

import (
	"github.com/xoplog/secondary-sampling-go/xoptrace"

	"github.com/muir/list"
)

// Entry pairs a State with its mutated marker: true when the state was
// provisioned, or its sampled flag changed, since extraction.
type Entry struct {
	State   State
	Mutated bool
}

// StateSet is the secondary sampling data of one trace context.  It
// holds at most one Entry per key, in insertion order.
//
// A StateSet that has been attached to a Bundle is frozen: it may be read
// from any number of goroutines and is never written again.  Put on a
// frozen set copies it first.  A set that has not been attached is
// private to its creator and Put modifies it in place.
type StateSet struct {
	entries []Entry
	frozen  bool
}

var _ xoptrace.Extension = (*StateSet)(nil)

// NewStateSet creates a root StateSet holding exactly the given entries.
// When a key repeats, the later entry replaces the earlier one.
func NewStateSet(initial ...Entry) *StateSet {
	s := &StateSet{
		entries: make([]Entry, 0, len(initial)),
	}
	for _, e := range initial {
		s.set(e)
	}
	return s
}

// Fork creates a private, independent copy of parent.
func Fork(parent *StateSet) *StateSet {
	if parent == nil {
		return &StateSet{}
	}
	return &StateSet{
		entries: list.Copy(parent.entries),
	}
}

// Fork implements xoptrace.Extension.  The copy is frozen because it is
// destined for a Bundle.
func (s *StateSet) Fork() xoptrace.Extension {
	f := Fork(s)
	f.frozen = true
	return f
}

func (s *StateSet) Get(key string) (State, bool) {
	e, ok := s.entry(key)
	return e.State, ok
}

// IsMutated reports the marker of key.
func (s *StateSet) IsMutated(key string) bool {
	e, ok := s.entry(key)
	return ok && e.Mutated
}

// Put replaces the entry for state's key, or adds one.  The returned set
// must be used in place of the receiver: it is a copy when the receiver
// is frozen.  A nil receiver is an empty set.
func (s *StateSet) Put(state State, mutated bool) *StateSet {
	switch {
	case s == nil:
		s = &StateSet{}
	case s.frozen:
		s = Fork(s)
	}
	s.set(Entry{State: state, Mutated: mutated})
	return s
}

func (s *StateSet) set(e Entry) {
	for i := range s.entries {
		if s.entries[i].State.key == e.State.key {
			s.entries[i] = e
			return
		}
	}
	s.entries = append(s.entries, e)
}

func (s *StateSet) entry(key string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	for _, e := range s.entries {
		if e.State.key == key {
			return e, true
		}
	}
	return Entry{}, false
}

// MutatedKeys lists, in order, the keys whose marker is set.
func (s *StateSet) MutatedKeys() []string {
	if s == nil {
		return nil
	}
	var keys []string
	for _, e := range s.entries {
		if e.Mutated {
			keys = append(keys, e.State.key)
		}
	}
	return keys
}

func (s *StateSet) States() []State {
	if s == nil {
		return nil
	}
	states := make([]State, len(s.entries))
	for i, e := range s.entries {
		states[i] = e.State
	}
	return states
}

func (s *StateSet) Entries() []Entry {
	if s == nil {
		return nil
	}
	return list.Copy(s.entries)
}

func (s *StateSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

func (s *StateSet) IsEmpty() bool { return s.Len() == 0 }

func (s *StateSet) String() string { return Encode(s.States()) }

func (s *StateSet) freeze() {
	if !s.frozen {
		s.frozen = true
	}
}

// FromBundle returns the StateSet of a trace context.
func FromBundle(b xoptrace.Bundle) (*StateSet, bool) {
	return xoptrace.FindExtension[*StateSet](b)
}

// WithStateSet returns b carrying s.  s is frozen by this call.
func WithStateSet(b xoptrace.Bundle, s *StateSet) xoptrace.Bundle {
	if s == nil {
		s = &StateSet{}
	}
	s.freeze()
	return b.WithExtension(s)
}

// Put updates one entry of the StateSet of *b.  Other Bundles, including
// ones that were copied from *b by assignment, are not affected.
func Put(b *xoptrace.Bundle, state State, mutated bool) {
	s, _ := FromBundle(*b)
	*b = WithStateSet(*b, s.Put(state, mutated))
}

// MutatedKeys returns the mutated keys of the StateSet of b.
func MutatedKeys(b xoptrace.Bundle) []string {
	s, _ := FromBundle(b)
	return s.MutatedKeys()
}
