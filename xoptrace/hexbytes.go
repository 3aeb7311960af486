package xoptrace

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
)

// HexBytes1, HexBytes8, and HexBytes16 hold fixed-size identifiers
// along with their lowercase hex rendering so that String() does
// not allocate.
type HexBytes1 struct {
	b [1]byte
	h [1 * 2]byte
}

type HexBytes8 struct {
	b [8]byte
	h [8 * 2]byte
}

type HexBytes16 struct {
	b [16]byte
	h [16 * 2]byte
}

// WrappedHexBytes1 (and friends) are returned by the mutating accessors
// of Trace.  Every setter rebuilds the cached header string of the Trace
// it came from.
type WrappedHexBytes1 struct {
	*HexBytes1
	trace *Trace
}

type WrappedHexBytes8 struct {
	*HexBytes8
	trace *Trace
}

type WrappedHexBytes16 struct {
	*HexBytes16
	trace *Trace
}

var zeroBytes = make([]byte, 16)

func NewHexBytes1FromString(s string) HexBytes1 {
	var x HexBytes1
	setBytesFromString(x.b[:], s)
	x.initialize()
	return x
}

func NewHexBytes8FromString(s string) HexBytes8 {
	var x HexBytes8
	setBytesFromString(x.b[:], s)
	x.initialize()
	return x
}

func NewHexBytes16FromString(s string) HexBytes16 {
	var x HexBytes16
	setBytesFromString(x.b[:], s)
	x.initialize()
	return x
}

func NewHexBytes8FromSlice(b []byte) HexBytes8 {
	var x HexBytes8
	setBytes(x.b[:], b)
	x.initialize()
	return x
}

func NewRandomSpanID() HexBytes8 {
	var x HexBytes8
	randomNotZero(x.b[:])
	x.initialize()
	return x
}

func (x HexBytes1) IsZero() bool   { return x.b == [1]byte{} }
func (x HexBytes1) Bytes() []byte  { return x.b[:] }
func (x HexBytes1) Array() [1]byte { return x.b }
func (x HexBytes1) String() string { return string(x.h[:]) }

func (x HexBytes8) IsZero() bool   { return x.b == [8]byte{} }
func (x HexBytes8) Bytes() []byte  { return x.b[:] }
func (x HexBytes8) Array() [8]byte { return x.b }
func (x HexBytes8) String() string { return string(x.h[:]) }

func (x HexBytes16) IsZero() bool    { return x.b == [16]byte{} }
func (x HexBytes16) Bytes() []byte   { return x.b[:] }
func (x HexBytes16) Array() [16]byte { return x.b }
func (x HexBytes16) String() string  { return string(x.h[:]) }

func (x *HexBytes1) initialize()  { hex.Encode(x.h[:], x.b[:]) }
func (x *HexBytes8) initialize()  { hex.Encode(x.h[:], x.b[:]) }
func (x *HexBytes16) initialize() { hex.Encode(x.h[:], x.b[:]) }

func (x WrappedHexBytes1) SetArray(b [1]byte) {
	x.b = b
	x.initialize()
	x.trace.rebuild()
}

func (x WrappedHexBytes8) SetArray(b [8]byte) {
	x.b = b
	x.initialize()
	x.trace.rebuild()
}

func (x WrappedHexBytes16) SetArray(b [16]byte) {
	x.b = b
	x.initialize()
	x.trace.rebuild()
}

func (x WrappedHexBytes1) SetBytes(b []byte) {
	setBytes(x.b[:], b)
	x.initialize()
	x.trace.rebuild()
}

func (x WrappedHexBytes8) SetBytes(b []byte) {
	setBytes(x.b[:], b)
	x.initialize()
	x.trace.rebuild()
}

func (x WrappedHexBytes16) SetBytes(b []byte) {
	setBytes(x.b[:], b)
	x.initialize()
	x.trace.rebuild()
}

// SetString decodes hex.  Invalid hex sets the value to zero.
func (x WrappedHexBytes1) SetString(s string) {
	setBytesFromString(x.b[:], s)
	x.initialize()
	x.trace.rebuild()
}

func (x WrappedHexBytes8) SetString(s string) {
	setBytesFromString(x.b[:], s)
	x.initialize()
	x.trace.rebuild()
}

// SetString decodes hex.  A 64-bit (16 character) value, as sent by
// older B3 implementations, is right-aligned.
func (x WrappedHexBytes16) SetString(s string) {
	if len(s) == 16 {
		s = "0000000000000000" + s
	}
	setBytesFromString(x.b[:], s)
	x.initialize()
	x.trace.rebuild()
}

func (x WrappedHexBytes1) SetZero()  { x.SetArray([1]byte{}) }
func (x WrappedHexBytes8) SetZero()  { x.SetArray([8]byte{}) }
func (x WrappedHexBytes16) SetZero() { x.SetArray([16]byte{}) }

func (x WrappedHexBytes8) SetRandom() {
	randomNotZero(x.b[:])
	x.initialize()
	x.trace.rebuild()
}

func (x WrappedHexBytes16) SetRandom() {
	randomNotZero(x.b[:])
	x.initialize()
	x.trace.rebuild()
}

func (x WrappedHexBytes8) Set(b HexBytes8) {
	*x.HexBytes8 = b
	x.trace.rebuild()
}

func randomNotZero(b []byte) {
	for {
		_, _ = rand.Read(b)
		if !bytes.Equal(b, zeroBytes[:len(b)]) {
			return
		}
	}
}

func setBytesFromString(dest []byte, h string) {
	b, err := hex.DecodeString(h)
	if err != nil {
		copy(dest, zeroBytes[:len(dest)])
		return
	}
	setBytes(dest, b)
}

func setBytes(dest []byte, b []byte) {
	n := copy(dest, b)
	copy(dest[n:], zeroBytes[:len(dest)-n])
}
