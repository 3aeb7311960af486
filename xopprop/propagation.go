/*
Package xopprop describes how a trace context (xoptrace.Bundle) is moved
into and out of a carrier such as HTTP headers or gRPC metadata.

A Factory creates a Propagation for a particular kind of key (see
KeyFactory).  A Propagation names the carrier keys it uses and builds
Injectors and Extractors around caller-supplied Setters and Getters.
W3C and B3 are the primary mechanisms provided here.  Other packages
wrap a primary mechanism to carry more fields.
*/
package xopprop

import (
	"context"

	"github.com/xoplog/secondary-sampling-go/xoptrace"

	"github.com/pkg/errors"
)

var (
	ErrNilGetter   = errors.New("getter == nil")
	ErrNilSetter   = errors.New("setter == nil")
	ErrInvalidKey  = errors.New("invalid propagation key")
	ErrCarrierType = errors.New("unsupported carrier type")
)

// KeyFactory turns a lowercase field name into the key used with a
// particular kind of carrier.
type KeyFactory func(name string) (string, error)

// Getter reads one key from a carrier.  The bool is false when the key
// is not present.
type Getter func(carrier interface{}, key string) (string, bool)

// Setter writes one key into a carrier.
type Setter func(carrier interface{}, key string, value string) error

// Injector writes a trace context into a carrier.
type Injector func(b xoptrace.Bundle, carrier interface{}) error

// Extractor reads a trace context from a carrier.
type Extractor func(ctx context.Context, carrier interface{}) (Extracted, error)

// Extracted is the result of extraction.  When Found is false, no trace
// context was present, but Bundle can still hold a sampling decision in
// Bundle.Trace's flags, and any Extensions added by wrapping mechanisms.
type Extracted struct {
	Bundle xoptrace.Bundle
	Found  bool
}

type Propagation interface {
	// Keys lists every carrier key that is read or written.
	Keys() []string
	Injector(setter Setter) (Injector, error)
	Extractor(getter Getter) (Extractor, error)
}

type Factory interface {
	Create(keys KeyFactory) (Propagation, error)
}

// Decorator is optionally implemented by a Factory that needs to adjust
// each new trace context.
type Decorator interface {
	Decorate(b xoptrace.Bundle) xoptrace.Bundle
}

func checkSetter(setter Setter) error {
	if setter == nil {
		return errors.WithStack(ErrNilSetter)
	}
	return nil
}

func checkGetter(getter Getter) error {
	if getter == nil {
		return errors.WithStack(ErrNilGetter)
	}
	return nil
}

func makeKeys(keys KeyFactory, names ...string) ([]string, error) {
	if keys == nil {
		return nil, errors.New("key factory == nil")
	}
	made := make([]string, len(names))
	for i, name := range names {
		k, err := keys(name)
		if err != nil {
			return nil, errors.Wrapf(err, "create key for %s", name)
		}
		made[i] = k
	}
	return made, nil
}
