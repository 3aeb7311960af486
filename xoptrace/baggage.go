package xoptrace

// Baggage tracks the contents of key/values that are passed
// through a trace in the "baggage" header.
// See https://w3c.github.io/baggage/
// Note that baggage values may contain PII and should not be logged
// where PII isn't allowed.
type Baggage struct {
	asString string
}

func (b *Baggage) SetString(h string) { b.asString = h }
func (b Baggage) IsZero() bool        { return b.asString == "" }
func (b Baggage) String() string      { return b.asString }
func (b Baggage) Copy() Baggage       { return b }
