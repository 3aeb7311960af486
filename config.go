package secondary

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"
)

// Config holds the settings of a Sampling that can come from a file.
type Config struct {
	// FieldName is the ascii lowercase propagation field.  Defaults to "sampling".
	FieldName string `yaml:"field_name"`

	// TagName is the ascii lowercase tag that lists mutated keys on
	// finished spans.  Defaults to "sampled_keys".
	TagName string `yaml:"tag_name"`

	// MaxFieldLength bounds inbound field values.  Longer values are
	// ignored.
	MaxFieldLength int `yaml:"max_field_length"`
}

func DefaultConfig() Config {
	return Config{
		FieldName:      "sampling",
		TagName:        "sampled_keys",
		MaxFieldLength: DefaultMaxFieldLength,
	}
}

// Validate reports every problem with the config.
func (c Config) Validate() error {
	var errs error
	if _, err := validateAndLowercase(c.FieldName, "field"); err != nil {
		errs = multierr.Append(errs, err)
	}
	if _, err := validateAndLowercase(c.TagName, "tag"); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.MaxFieldLength <= 0 {
		errs = multierr.Append(errs, configError("max_field_length must be positive, not %d", c.MaxFieldLength))
	}
	return errs
}

// LoadConfig reads YAML.  Settings that are not present keep their
// defaults.
func LoadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "decode secondary sampling config")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func validateAndLowercase(name, title string) (string, error) {
	if name == "" {
		return "", configError("%q is not a valid %s name", name, title)
	}
	return strings.ToLower(name), nil
}
