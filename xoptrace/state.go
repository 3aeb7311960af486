package xoptrace

// State tracks the contents of key/values that are passed
// through a trace in the "tracestate" header.  It is kept opaque.
type State struct {
	asString string
}

func (s *State) SetString(h string) { s.asString = h }
func (s State) IsZero() bool        { return s.asString == "" }
func (s State) String() string      { return s.asString }
func (s State) Copy() State         { return s }
