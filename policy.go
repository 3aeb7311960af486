package secondary

import (
	"context"
)

// Provisioned receives the outcome of provisioning.  It must be called
// exactly once, from any goroutine.
type Provisioned func(states []State, err error)

// Provisioner adds new secondary sampling states during extraction.
// request is the carrier that the extraction reads from.  New states
// should have fresh keys; a state whose key is already present replaces
// the received one.
//
// Extraction does not complete until done is called or ctx is done.
type Provisioner interface {
	Provision(ctx context.Context, request interface{}, done Provisioned)
}

type ProvisionerFunc func(ctx context.Context, request interface{}, done Provisioned)

func (f ProvisionerFunc) Provision(ctx context.Context, request interface{}, done Provisioned) {
	f(ctx, request, done)
}

type noopProvisioner struct{}

func (noopProvisioner) Provision(_ context.Context, _ interface{}, done Provisioned) { done(nil, nil) }
func (noopProvisioner) String() string                                               { return "NoopProvisioner" }

// NoopProvisioner provisions nothing: the node only participates in
// keys that it receives.
var NoopProvisioner Provisioner = noopProvisioner{}

// Sampler renders the sampled decision of each state.  It is called once
// per extraction with every received and provisioned state and returns
// the same keys with possibly different sampled flags.
type Sampler interface {
	Sample(ctx context.Context, request interface{}, states []State) ([]State, error)
}

type SamplerFunc func(ctx context.Context, request interface{}, states []State) ([]State, error)

func (f SamplerFunc) Sample(ctx context.Context, request interface{}, states []State) ([]State, error) {
	return f(ctx, request, states)
}
