package secondary

import (
	"context"
	"sync"

	"github.com/xoplog/secondary-sampling-go/xopprop"
	"github.com/xoplog/secondary-sampling-go/xoptrace"

	"github.com/muir/list"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Propagation adds the secondary sampling field to a primary
// xopprop.Propagation.
type Propagation struct {
	delegate xopprop.Propagation
	fieldKey string
	keys     []string
	sampling *Sampling
}

var _ xopprop.Propagation = (*Propagation)(nil)

// Create builds the primary propagation and the key for the sampling
// field using the same KeyFactory.
func (s *Sampling) Create(keys xopprop.KeyFactory) (xopprop.Propagation, error) {
	if keys == nil {
		return nil, errors.New("key factory == nil")
	}
	delegate, err := s.delegate.Create(keys)
	if err != nil {
		return nil, err
	}
	fieldKey, err := keys(s.fieldName)
	if err != nil {
		return nil, errors.Wrapf(err, "create key for %s", s.fieldName)
	}
	all := make([]string, 0, len(delegate.Keys())+1)
	for _, k := range delegate.Keys() {
		if k != fieldKey {
			all = append(all, k)
		}
	}
	all = append(all, fieldKey)
	return &Propagation{
		delegate: delegate,
		fieldKey: fieldKey,
		keys:     all,
		sampling: s,
	}, nil
}

// Keys are the primary keys followed by the sampling field key.
func (p *Propagation) Keys() []string { return list.Copy(p.keys) }

func (p *Propagation) FieldKey() string { return p.fieldKey }

// Injector writes the primary fields and then, when the Bundle has
// secondary sampling state, the sampling field.
func (p *Propagation) Injector(setter xopprop.Setter) (xopprop.Injector, error) {
	if setter == nil {
		return nil, errors.WithStack(xopprop.ErrNilSetter)
	}
	delegate, err := p.delegate.Injector(setter)
	if err != nil {
		return nil, err
	}
	m := p.sampling.metrics
	return func(b xoptrace.Bundle, carrier interface{}) error {
		if err := delegate(b, carrier); err != nil {
			return err
		}
		set, _ := FromBundle(b)
		if set.IsEmpty() {
			m.injections.WithLabelValues(resultSkipped).Inc()
			return nil
		}
		if err := setter(carrier, p.fieldKey, Encode(set.States())); err != nil {
			return err
		}
		m.injections.WithLabelValues(resultWritten).Inc()
		return nil
	}, nil
}

// Extractor runs the primary extraction, parses the sampling field,
// provisions, samples, and attaches the resulting StateSet to the
// extracted Bundle.  A sampling field that cannot be parsed is ignored.
// Errors from the Provisioner and the Sampler are returned as they are.
func (p *Propagation) Extractor(getter xopprop.Getter) (xopprop.Extractor, error) {
	if getter == nil {
		return nil, errors.WithStack(xopprop.ErrNilGetter)
	}
	delegate, err := p.delegate.Extractor(getter)
	if err != nil {
		return nil, err
	}
	s := p.sampling
	return func(ctx context.Context, carrier interface{}) (xopprop.Extracted, error) {
		extracted, err := delegate(ctx, carrier)
		if err != nil {
			return xopprop.Extracted{}, err
		}
		working := NewStateSet()
		if v, ok := getter(carrier, p.fieldKey); ok && v != "" {
			states, err := Decode(v, s.maxLength)
			if err != nil {
				s.metrics.parseFailures.Inc()
				s.logger.Debug("ignoring unparsable secondary sampling field",
					zap.String("field", p.fieldKey),
					zap.Int("length", len(v)),
					zap.Error(err))
			}
			for _, state := range states {
				working = working.Put(state, false)
			}
		}

		provisioned, err := s.provision(ctx, carrier)
		if err != nil {
			s.metrics.extractions.WithLabelValues(resultError).Inc()
			return xopprop.Extracted{}, err
		}
		s.metrics.provisioned.Add(float64(len(provisioned)))
		for _, state := range provisioned {
			working = working.Put(state, true)
		}

		if err := s.sample(ctx, carrier, working); err != nil {
			s.metrics.extractions.WithLabelValues(resultError).Inc()
			return xopprop.Extracted{}, err
		}

		if working.IsEmpty() {
			s.metrics.extractions.WithLabelValues(resultEmpty).Inc()
		} else {
			s.metrics.extractions.WithLabelValues(resultFound).Inc()
		}
		extracted.Bundle = WithStateSet(extracted.Bundle, NewStateSet(working.Entries()...))
		return extracted, nil
	}, nil
}

type provisionResult struct {
	states []State
	err    error
}

// provision waits for the Provisioner's callback.  Every provisioned
// state must have a valid key.
func (s *Sampling) provision(ctx context.Context, request interface{}) ([]State, error) {
	ch := make(chan provisionResult, 1)
	var once sync.Once
	s.provisioner.Provision(ctx, request, func(states []State, err error) {
		first := false
		once.Do(func() {
			first = true
			ch <- provisionResult{states: list.Copy(states), err: err}
		})
		if !first {
			s.logger.Warn("secondary sampling provisioner completed more than once")
		}
	})
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, r.err
		}
		for _, state := range r.states {
			if err := validateToken(state.key, "key"); err != nil {
				return nil, errors.Wrapf(ErrInvalidState, "provisioned: %s", err)
			}
		}
		return r.states, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// sample applies the Sampler to every state of working.  Entries whose
// sampled flag changes become mutated.
func (s *Sampling) sample(ctx context.Context, request interface{}, working *StateSet) error {
	updated, err := s.sampler.Sample(ctx, request, working.States())
	if err != nil {
		return err
	}
	if len(updated) != working.Len() {
		return errors.Wrapf(ErrSamplerChangedKeys, "%d states in, %d out", working.Len(), len(updated))
	}
	seen := make(map[string]struct{}, len(updated))
	for _, u := range updated {
		if _, dup := seen[u.key]; dup {
			return errors.Wrapf(ErrSamplerChangedKeys, "key %s repeated", u.key)
		}
		seen[u.key] = struct{}{}
		e, ok := working.entry(u.key)
		if !ok {
			return errors.Wrapf(ErrSamplerChangedKeys, "key %s added", u.key)
		}
		working.Put(u, e.Mutated || e.State.sampled != u.sampled)
	}
	return nil
}
