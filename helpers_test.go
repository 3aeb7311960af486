package secondary_test

import (
	"context"
	"testing"

	secondary "github.com/xoplog/secondary-sampling-go"
	"github.com/xoplog/secondary-sampling-go/xopprop"

	"github.com/stretchr/testify/require"
)

const traceParent = "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"

var keep = secondary.SamplerFunc(func(_ context.Context, _ interface{}, states []secondary.State) ([]secondary.State, error) {
	return states, nil
})

// sampleKeys sets sampled=true on the named keys.
func sampleKeys(keys ...string) secondary.Sampler {
	return secondary.SamplerFunc(func(_ context.Context, _ interface{}, states []secondary.State) ([]secondary.State, error) {
		for i, s := range states {
			for _, k := range keys {
				if s.Key() == k {
					states[i] = s.WithSampled(true)
				}
			}
		}
		return states, nil
	})
}

func provision(keys ...string) secondary.Provisioner {
	return secondary.ProvisionerFunc(func(_ context.Context, _ interface{}, done secondary.Provisioned) {
		states := make([]secondary.State, len(keys))
		for i, k := range keys {
			states[i] = secondary.MustNewState(k)
		}
		done(states, nil)
	})
}

func newSampling(t *testing.T, mods ...secondary.Modifier) *secondary.Sampling {
	s, err := secondary.New(append([]secondary.Modifier{
		secondary.WithPropagation(xopprop.W3C{}),
		secondary.WithSampler(keep),
	}, mods...)...)
	require.NoError(t, err)
	return s
}

type propagation struct {
	prop    xopprop.Propagation
	extract xopprop.Extractor
	inject  xopprop.Injector
}

func newPropagation(t *testing.T, s *secondary.Sampling) propagation {
	prop, err := s.Create(xopprop.Lowercase)
	require.NoError(t, err)
	extract, err := prop.Extractor(xopprop.MapGetter)
	require.NoError(t, err)
	inject, err := prop.Injector(xopprop.MapSetter)
	require.NoError(t, err)
	return propagation{prop: prop, extract: extract, inject: inject}
}
