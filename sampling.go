/*
Package secondary propagates secondary sampling state: named sampling
decisions that ride along with the primary trace context so that
independent parties (a fraud pipeline, an experiment, a debug session)
can each decide whether to record a trace.

A Sampling wraps a primary xopprop.Factory.  The Propagation that it
creates reads and writes one more carrier field (default "sampling")
holding the encoded states (see Encode).  On extraction, the configured
Provisioner may add states and the Sampler decides each state's sampled
flag.  The result is a StateSet attached to the extracted
xoptrace.Bundle.  Child contexts fork the StateSet so that siblings
never see each other's changes.
*/
package secondary

import (
	"strings"

	"github.com/xoplog/secondary-sampling-go/xopprop"
	"github.com/xoplog/secondary-sampling-go/xoptrace"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Sampling is a configured secondary sampling mechanism.  It is an
// xopprop.Factory and an xopprop.Decorator.
type Sampling struct {
	fieldName   string
	tagName     string
	maxLength   int
	delegate    xopprop.Factory
	provisioner Provisioner
	sampler     Sampler
	logger      *zap.Logger
	metrics     *metrics
}

var (
	_ xopprop.Factory   = (*Sampling)(nil)
	_ xopprop.Decorator = (*Sampling)(nil)
)

type builder struct {
	config      Config
	delegate    xopprop.Factory
	provisioner Provisioner
	sampler     Sampler
	logger      *zap.Logger
	registerer  prometheus.Registerer
}

type Modifier func(*builder)

// WithConfig replaces the file-level settings.
func WithConfig(config Config) Modifier {
	return func(b *builder) {
		b.config = config
	}
}

// WithFieldName sets the ascii lowercase propagation field name.
func WithFieldName(fieldName string) Modifier {
	return func(b *builder) {
		b.config.FieldName = fieldName
	}
}

// WithTagName sets the ascii lowercase name of the tag listing mutated keys.
func WithTagName(tagName string) Modifier {
	return func(b *builder) {
		b.config.TagName = tagName
	}
}

// WithPropagation is required: it is the primary propagation mechanism.
func WithPropagation(factory xopprop.Factory) Modifier {
	return func(b *builder) {
		b.delegate = factory
	}
}

// WithProvisioner is optional.  By default, the node only participates
// in existing keys; it does not create new ones.
func WithProvisioner(provisioner Provisioner) Modifier {
	return func(b *builder) {
		b.provisioner = provisioner
	}
}

// WithSampler is required.
func WithSampler(sampler Sampler) Modifier {
	return func(b *builder) {
		b.sampler = sampler
	}
}

func WithLogger(logger *zap.Logger) Modifier {
	return func(b *builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithRegisterer exports metrics.
func WithRegisterer(registerer prometheus.Registerer) Modifier {
	return func(b *builder) {
		b.registerer = registerer
	}
}

// New builds a Sampling.  All configuration problems are reported
// together; each wraps ErrInvalidConfig.
func New(mods ...Modifier) (*Sampling, error) {
	b := builder{
		config:      DefaultConfig(),
		provisioner: NoopProvisioner,
		logger:      zap.NewNop(),
	}
	for _, mod := range mods {
		mod(&b)
	}
	errs := b.config.Validate()
	if b.delegate == nil {
		errs = multierr.Append(errs, configError("propagation == nil"))
	}
	if b.provisioner == nil {
		errs = multierr.Append(errs, configError("provisioner == nil"))
	}
	if b.sampler == nil {
		errs = multierr.Append(errs, configError("sampler == nil"))
	}
	if errs != nil {
		return nil, errs
	}
	s := &Sampling{
		fieldName:   strings.ToLower(b.config.FieldName),
		tagName:     strings.ToLower(b.config.TagName),
		maxLength:   b.config.MaxFieldLength,
		delegate:    b.delegate,
		provisioner: b.provisioner,
		sampler:     b.sampler,
		logger:      b.logger,
		metrics:     newMetrics(),
	}
	if b.registerer != nil {
		if err := s.metrics.register(b.registerer); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Sampling) FieldName() string { return s.fieldName }
func (s *Sampling) TagName() string   { return s.tagName }

// Decorate runs the primary mechanism's Decorator, if any, and then
// gives b its own fork of its StateSet.
func (s *Sampling) Decorate(b xoptrace.Bundle) xoptrace.Bundle {
	if d, ok := s.delegate.(xopprop.Decorator); ok {
		b = d.Decorate(b)
	}
	if set, ok := FromBundle(b); ok {
		b = b.WithExtension(set.Fork())
	}
	return b
}

// Tag returns the value to record under TagName for a finished span:
// the mutated keys joined with ",".  ok is false when there are none.
func (s *Sampling) Tag(b xoptrace.Bundle) (value string, ok bool) {
	keys := MutatedKeys(b)
	if len(keys) == 0 {
		return "", false
	}
	return strings.Join(keys, ","), true
}
