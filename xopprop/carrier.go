package xopprop

import (
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// Lowercase is a KeyFactory for carriers with lowercase keys, like
// gRPC metadata and plain maps.
func Lowercase(name string) (string, error) {
	if err := validateToken(name); err != nil {
		return "", err
	}
	return strings.ToLower(name), nil
}

// HTTPHeader is a KeyFactory producing canonical header names.
func HTTPHeader(name string) (string, error) {
	if err := validateToken(name); err != nil {
		return "", err
	}
	return http.CanonicalHeaderKey(name), nil
}

// validateToken accepts RFC 7230 token characters.
func validateToken(name string) error {
	if name == "" {
		return errors.Wrap(ErrInvalidKey, "empty name")
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case strings.IndexByte("!#$%&'*+-.^_`|~", c) >= 0:
		default:
			return errors.Wrapf(ErrInvalidKey, "%q has invalid character %q", name, c)
		}
	}
	return nil
}

// HeaderGetter reads from an http.Header or the headers of an *http.Request.
func HeaderGetter(carrier interface{}, key string) (string, bool) {
	var h http.Header
	switch c := carrier.(type) {
	case http.Header:
		h = c
	case *http.Request:
		h = c.Header
	default:
		return "", false
	}
	v := h.Values(key)
	if len(v) == 0 {
		return "", false
	}
	return v[0], true
}

// HeaderSetter writes to an http.Header or the headers of an *http.Request.
func HeaderSetter(carrier interface{}, key string, value string) error {
	switch c := carrier.(type) {
	case http.Header:
		c.Set(key, value)
	case *http.Request:
		c.Header.Set(key, value)
	default:
		return errors.Wrapf(ErrCarrierType, "%T", carrier)
	}
	return nil
}

func MapGetter(carrier interface{}, key string) (string, bool) {
	m, ok := carrier.(map[string]string)
	if !ok {
		return "", false
	}
	v, ok := m[key]
	return v, ok
}

func MapSetter(carrier interface{}, key string, value string) error {
	m, ok := carrier.(map[string]string)
	if !ok || m == nil {
		return errors.Wrapf(ErrCarrierType, "%T", carrier)
	}
	m[key] = value
	return nil
}
