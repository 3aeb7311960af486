package secondary

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidConfig is wrapped by every configuration error.
	ErrInvalidConfig = errors.New("invalid secondary sampling configuration")

	// ErrSamplerChangedKeys is returned by extraction when a Sampler adds,
	// drops, or repeats keys.
	ErrSamplerChangedKeys = errors.New("secondary sampler changed the set of keys")

	// ErrInvalidState is returned by extraction when a Provisioner supplies
	// a state that could not be encoded, such as the zero State.
	ErrInvalidState = errors.New("invalid secondary sampling state")
)

func configError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidConfig, format, args...)
}
