package secondary

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// EncodingVersion identifies the wire grammar implemented by Encode and
// Decode:
//
//	value  = OWS entry *( OWS "," OWS entry ) OWS
//	entry  = key *( ";" param )
//	param  = name "=" *safe
//	key    = 1*safe
//	name   = 1*safe
//	safe   = %x21-7E except "," ";" "="
//
// The parameter "sampled" carries the sampled flag ("1" or "0"; "true"
// and "false" are also accepted).  The parameter "ttl" is the hop limit.
// Other parameters are kept in order.  Example:
//
//	sampling: audit;sampled=1,exp2;ttl=3
const EncodingVersion = 1

// DefaultMaxFieldLength bounds the encoded value that Decode accepts.
const DefaultMaxFieldLength = 4096

// Encode renders states in order.  Unsampled states omit "sampled".
func Encode(states []State) string {
	var sb strings.Builder
	for i, s := range states {
		if i != 0 {
			sb.WriteByte(',')
		}
		s.encode(&sb)
	}
	return sb.String()
}

// Decode parses a field value.  The empty value decodes to no states.
// When a key repeats, the last occurrence wins and keeps the position of
// the first.  Errors wrap strconv.ErrSyntax.
func Decode(value string, maxLength int) ([]State, error) {
	if maxLength > 0 && len(value) > maxLength {
		return nil, errors.Wrapf(strconv.ErrSyntax, "secondary sampling: value length %d exceeds %d", len(value), maxLength)
	}
	value = strings.Trim(value, " \t")
	if value == "" {
		return nil, nil
	}
	var states []State
	index := make(map[string]int)
	for _, entry := range strings.Split(value, ",") {
		s, err := decodeEntry(strings.Trim(entry, " \t"))
		if err != nil {
			return nil, err
		}
		if i, ok := index[s.key]; ok {
			states[i] = s
			continue
		}
		index[s.key] = len(states)
		states = append(states, s)
	}
	return states, nil
}

func syntaxError(format string, args ...interface{}) error {
	return errors.Wrapf(strconv.ErrSyntax, "secondary sampling: "+format, args...)
}

func decodeEntry(entry string) (State, error) {
	parts := strings.Split(entry, ";")
	if err := validateToken(parts[0], "key"); err != nil {
		return State{}, syntaxError("%s", err)
	}
	s := State{key: parts[0]}
	for _, part := range parts[1:] {
		eq := strings.IndexByte(part, '=')
		if eq == -1 {
			return State{}, syntaxError("parameter %q of %s has no value", part, s.key)
		}
		name, value := part[:eq], part[eq+1:]
		if name == sampledParam {
			switch value {
			case "1", "true":
				s.sampled = true
			case "0", "false":
				s.sampled = false
			default:
				return State{}, syntaxError("invalid sampled value %q for %s", value, s.key)
			}
			continue
		}
		var err error
		s, err = s.WithParam(name, value)
		if err != nil {
			return State{}, syntaxError("%s", err)
		}
	}
	return s, nil
}
