/*
Package xopprovision has Provisioners for common ways of starting a new
secondary sampling key at the edge of a system.
*/
package xopprovision

import (
	"context"
	"strings"

	secondary "github.com/xoplog/secondary-sampling-go"
	"github.com/xoplog/secondary-sampling-go/xopprop"

	"github.com/google/uuid"
)

// FromField provisions the keys listed, comma separated, in one carrier
// field.  For example, an edge proxy can let a developer ask for a
// "debug" key with a header.  Keys that are not valid are skipped.
func FromField(getter xopprop.Getter, key string, params ...secondary.Param) secondary.Provisioner {
	return secondary.ProvisionerFunc(func(_ context.Context, request interface{}, done secondary.Provisioned) {
		v, ok := getter(request, key)
		if !ok || v == "" {
			done(nil, nil)
			return
		}
		var states []secondary.State
		for _, k := range strings.Split(v, ",") {
			state, err := secondary.NewState(strings.TrimSpace(k), params...)
			if err != nil {
				continue
			}
			states = append(states, state)
		}
		done(states, nil)
	})
}

// Unique provisions a single new key, prefix followed by a random uuid,
// for each request that want accepts.  A nil want accepts every request.
func Unique(prefix string, want func(request interface{}) bool, params ...secondary.Param) secondary.Provisioner {
	return secondary.ProvisionerFunc(func(_ context.Context, request interface{}, done secondary.Provisioned) {
		if want != nil && !want(request) {
			done(nil, nil)
			return
		}
		state, err := secondary.NewState(prefix+"-"+uuid.New().String(), params...)
		if err != nil {
			done(nil, err)
			return
		}
		done([]secondary.State{state}, nil)
	})
}

// Async runs p on its own goroutine.
func Async(p secondary.Provisioner) secondary.Provisioner {
	return secondary.ProvisionerFunc(func(ctx context.Context, request interface{}, done secondary.Provisioned) {
		go p.Provision(ctx, request, done)
	})
}

// Chain runs each Provisioner in turn and provisions everything they
// provision.  The first error ends the chain.
func Chain(provisioners ...secondary.Provisioner) secondary.Provisioner {
	return secondary.ProvisionerFunc(func(ctx context.Context, request interface{}, done secondary.Provisioned) {
		var all []secondary.State
		for _, p := range provisioners {
			ch := make(chan result, 1)
			p.Provision(ctx, request, func(states []secondary.State, err error) {
				select {
				case ch <- result{states: states, err: err}:
				default:
				}
			})
			select {
			case r := <-ch:
				if r.err != nil {
					done(nil, r.err)
					return
				}
				all = append(all, r.states...)
			case <-ctx.Done():
				done(nil, ctx.Err())
				return
			}
		}
		done(all, nil)
	})
}

type result struct {
	states []secondary.State
	err    error
}
