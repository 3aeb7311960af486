package xopresty_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	secondary "github.com/xoplog/secondary-sampling-go"
	"github.com/xoplog/secondary-sampling-go/xopmiddle"
	"github.com/xoplog/secondary-sampling-go/xopprop"
	"github.com/xoplog/secondary-sampling-go/xopresty"
	"github.com/xoplog/secondary-sampling-go/xoptrace"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestXopResty(t *testing.T) {
	s, err := secondary.New(
		secondary.WithPropagation(xopprop.W3C{}),
		secondary.WithSampler(secondary.SamplerFunc(func(_ context.Context, _ interface{}, states []secondary.State) ([]secondary.State, error) {
			return states, nil
		})))
	require.NoError(t, err)
	prop, err := s.Create(xopprop.HTTPHeader)
	require.NoError(t, err)

	inbound, err := xopmiddle.New(prop, xopmiddle.WithDecorator(s))
	require.NoError(t, err)
	received := make(chan xoptrace.Bundle, 1)
	ts := httptest.NewServer(inbound.HandlerFuncMiddleware()(func(w http.ResponseWriter, r *http.Request) {
		received <- xoptrace.FromContextOrPanic(r.Context())
		_, _ = w.Write([]byte(r.Header.Get("Sampling")))
	}))
	defer ts.Close()

	core, logs := observer.New(zap.DebugLevel)
	client, err := xopresty.Wrap(resty.New(), prop, zap.New(core))
	require.NoError(t, err)
	client.SetDebug(true)

	var bundle xoptrace.Bundle
	bundle.Trace.TraceID().SetRandom()
	bundle.Trace.SpanID().SetRandom()
	bundle.Trace.SetSampled(true)
	secondary.Put(&bundle, secondary.MustNewState("audit").WithSampled(true), true)
	ctx := xoptrace.IntoContext(context.Background(), bundle)

	resp, err := client.R().SetContext(ctx).Get(ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "audit;sampled=1", resp.String())

	remote := <-received
	assert.Equal(t, bundle.Trace.GetTraceID().String(), remote.Trace.GetTraceID().String(), "same trace")
	assert.Equal(t, bundle.Trace.GetSpanID().String(), remote.Parent.GetSpanID().String(), "our span is the parent")
	assert.True(t, remote.Trace.IsSampled())
	set, ok := secondary.FromBundle(remote)
	require.True(t, ok)
	audit, ok := set.Get("audit")
	require.True(t, ok)
	assert.True(t, audit.Sampled())
	assert.Empty(t, secondary.MutatedKeys(remote), "received unchanged")

	resp, err = client.R().Get(ts.URL)
	require.NoError(t, err)
	assert.Equal(t, "", resp.String(), "no context, no sampling")
	remote = <-received
	assert.NotEqual(t, bundle.Trace.GetTraceID().String(), remote.Trace.GetTraceID().String())

	var debug int
	for _, e := range logs.All() {
		if strings.Contains(e.Message, "REQUEST") {
			debug++
		}
	}
	assert.NotZero(t, debug, "resty debug output is logged")
}
