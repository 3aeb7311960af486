package secondary

import (
	"strconv"
	"strings"

	"github.com/muir/list"
	"github.com/pkg/errors"
)

// State is one secondary sampling participant's slot in a trace
// context: a key, the participant's sampled decision, and any
// parameters that its policy wants propagated, such as a hop limit
// (see TTL).
//
// States are values.  The With* methods return modified copies.
// Two States occupy the same slot when their keys are equal.
type State struct {
	key     string
	sampled bool
	params  []Param
}

// Param is a policy-specific parameter of a State.
type Param struct {
	Name  string
	Value string
}

const (
	sampledParam = "sampled"
	ttlParam     = "ttl"
)

// NewState creates an unsampled state.  The key and parameter names must
// be non-empty; keys, names, and values may only contain printable ASCII
// other than ',', ';', and '='.
func NewState(key string, params ...Param) (State, error) {
	if err := validateToken(key, "key"); err != nil {
		return State{}, err
	}
	s := State{key: key}
	for _, p := range params {
		var err error
		s, err = s.WithParam(p.Name, p.Value)
		if err != nil {
			return State{}, errors.Wrapf(err, "state %s", key)
		}
	}
	return s, nil
}

// MustNewState is NewState for keys known to be valid.
func MustNewState(key string, params ...Param) State {
	s, err := NewState(key, params...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s State) Key() string   { return s.key }
func (s State) Sampled() bool { return s.sampled }

// Params returns a copy of the parameters, in order.
func (s State) Params() []Param { return list.Copy(s.params) }

func (s State) Param(name string) (string, bool) {
	for _, p := range s.params {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

func (s State) WithSampled(sampled bool) State {
	s.sampled = sampled
	return s
}

// WithParam replaces the value of the named parameter or appends it.
// The sampled flag is not a parameter: use WithSampled.
func (s State) WithParam(name, value string) (State, error) {
	if name == sampledParam {
		return s, errors.Errorf("%q is reserved, use WithSampled", sampledParam)
	}
	if err := validateToken(name, "parameter name"); err != nil {
		return s, err
	}
	if value != "" {
		if err := validateToken(value, "parameter value"); err != nil {
			return s, err
		}
	}
	s.params = list.Copy(s.params)
	for i, p := range s.params {
		if p.Name == name {
			s.params[i].Value = value
			return s, nil
		}
	}
	s.params = append(s.params, Param{Name: name, Value: value})
	return s, nil
}

// TTL returns the hop limit, if there is a valid one.
func (s State) TTL() (int, bool) {
	v, ok := s.Param(ttlParam)
	if !ok {
		return 0, false
	}
	ttl, err := strconv.Atoi(v)
	if err != nil || ttl < 0 {
		return 0, false
	}
	return ttl, true
}

// WithTTL sets the hop limit.  Negative values are treated as zero.
func (s State) WithTTL(ttl int) State {
	if ttl < 0 {
		ttl = 0
	}
	n, _ := s.WithParam(ttlParam, strconv.Itoa(ttl))
	return n
}

// String is the wire form of the state: see Encode.
func (s State) String() string {
	var sb strings.Builder
	s.encode(&sb)
	return sb.String()
}

func (s State) encode(sb *strings.Builder) {
	sb.WriteString(s.key)
	if s.sampled {
		sb.WriteString(";" + sampledParam + "=1")
	}
	for _, p := range s.params {
		sb.WriteByte(';')
		sb.WriteString(p.Name)
		sb.WriteByte('=')
		sb.WriteString(p.Value)
	}
}

func isWireSafe(c byte) bool {
	if c < 0x21 || c > 0x7e {
		return false
	}
	switch c {
	case ',', ';', '=':
		return false
	}
	return true
}

func validateToken(s string, what string) error {
	if s == "" {
		return errors.Errorf("empty %s", what)
	}
	for i := 0; i < len(s); i++ {
		if !isWireSafe(s[i]) {
			return errors.Errorf("%s %q has invalid character %q", what, s, s[i])
		}
	}
	return nil
}
