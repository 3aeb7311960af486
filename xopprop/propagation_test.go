package xopprop_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/xoplog/secondary-sampling-go/xopprop"
	"github.com/xoplog/secondary-sampling-go/xoptrace"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var headerCases = []struct {
	name              string
	factory           xopprop.Factory
	headers           []string
	expectFound       bool
	expectParentTrace string
	expectParentSpan  string
	expectTrace       string // defaults to expectParentTrace
	expectSpan        string // defaults to random
	expectSampled     bool
}{
	{
		name:              "traceparent set",
		factory:           xopprop.W3C{},
		headers:           []string{"traceparent", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"},
		expectFound:       true,
		expectParentTrace: "0af7651916cd43dd8448eb211c80319c",
		expectParentSpan:  "b7ad6b7169203331",
		expectSampled:     true,
	},
	{
		name:              "traceparent invalid",
		factory:           xopprop.W3C{},
		headers:           []string{"traceparent", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b71"},
		expectParentTrace: "00000000000000000000000000000000",
		expectParentSpan:  "0000000000000000",
		expectSpan:        "0000000000000000",
	},
	{
		name:              "no header",
		factory:           xopprop.W3C{},
		expectParentTrace: "00000000000000000000000000000000",
		expectParentSpan:  "0000000000000000",
		expectSpan:        "0000000000000000",
	},
	{
		name:    "b3 with everything",
		factory: xopprop.B3{},
		headers: []string{
			"X-B3-TraceId", "0af7651916cd43dd8448eb211c80319c",
			"X-B3-ParentSpanId", "b7ad6b7169203331",
			"X-B3-SpanId", "91e961630d5d22de",
			"X-B3-Sampled", "1",
		},
		expectFound:       true,
		expectParentTrace: "0af7651916cd43dd8448eb211c80319c",
		expectParentSpan:  "b7ad6b7169203331",
		expectSpan:        "91e961630d5d22de",
		expectSampled:     true,
	},
	{
		name:    "b3 without span",
		factory: xopprop.B3{},
		headers: []string{
			"X-B3-TraceId", "0af7651916cd43dd8448eb211c80319c",
			"X-B3-ParentSpanId", "b7ad6b7169203331",
		},
		expectFound:       true,
		expectParentTrace: "0af7651916cd43dd8448eb211c80319c",
		expectParentSpan:  "b7ad6b7169203331",
	},
	{
		name:    "b3 debug flag",
		factory: xopprop.B3{},
		headers: []string{
			"X-B3-TraceId", "0af7651916cd43dd8448eb211c80319c",
			"X-B3-SpanId", "91e961630d5d22de",
			"X-B3-Flags", "1",
		},
		expectFound:       true,
		expectParentTrace: "0af7651916cd43dd8448eb211c80319c",
		expectParentSpan:  "0000000000000000",
		expectSpan:        "91e961630d5d22de",
		expectSampled:     true,
	},
	{
		name:    "b3 single line",
		factory: xopprop.B3{},
		headers: []string{
			"b3", "80f198ee56343ba864fe8b2a57d3eff7-e457b5a2e4d86bd1-1",
		},
		expectFound:       true,
		expectParentTrace: "80f198ee56343ba864fe8b2a57d3eff7",
		expectParentSpan:  "0000000000000000",
		expectSpan:        "e457b5a2e4d86bd1",
		expectSampled:     true,
	},
	{
		name:    "b3 single line with parent",
		factory: xopprop.B3{},
		headers: []string{
			"b3", "80f198ee56343ba864fe8b2a57d3eff7-e457b5a2e4d86bd1-1-05e3ac9a4f6e3b90",
		},
		expectFound:       true,
		expectParentTrace: "80f198ee56343ba864fe8b2a57d3eff7",
		expectParentSpan:  "05e3ac9a4f6e3b90",
		expectSpan:        "e457b5a2e4d86bd1",
		expectSampled:     true,
	},
	{
		name:    "b3 sampled",
		factory: xopprop.B3{},
		headers: []string{
			"X-B3-TraceId", "0af7651916cd43dd8448eb211c80319c",
			"X-B3-ParentSpanId", "b7ad6b7169203331",
			"X-B3-Sampled", "0",
		},
		expectFound:       true,
		expectParentTrace: "0af7651916cd43dd8448eb211c80319c",
		expectParentSpan:  "b7ad6b7169203331",
	},
	{
		name:              "b3 decision only",
		factory:           xopprop.B3{},
		headers:           []string{"b3", "1"},
		expectParentTrace: "00000000000000000000000000000000",
		expectParentSpan:  "0000000000000000",
		expectSpan:        "0000000000000000",
		expectSampled:     true,
	},
}

func TestExtract(t *testing.T) {
	for _, hc := range headerCases {
		hc := hc
		t.Run(hc.name, func(t *testing.T) {
			prop, err := hc.factory.Create(xopprop.HTTPHeader)
			require.NoError(t, err, "create")
			extract, err := prop.Extractor(xopprop.HeaderGetter)
			require.NoError(t, err, "extractor")

			r, err := http.NewRequest("GET", "/foo", nil)
			require.NoError(t, err, "new request")
			for i := 0; i < len(hc.headers); i += 2 {
				r.Header.Set(hc.headers[i], hc.headers[i+1])
			}

			extracted, err := extract(context.Background(), r)
			require.NoError(t, err, "extract")
			b := extracted.Bundle
			assert.Equal(t, hc.expectFound, extracted.Found, "found")
			assert.Equal(t, hc.expectParentTrace, b.Parent.GetTraceID().String(), "parent traceID")
			assert.Equal(t, hc.expectParentSpan, b.Parent.GetSpanID().String(), "parent spanID")

			if hc.expectTrace == "" {
				hc.expectTrace = hc.expectParentTrace
			}
			assert.Equal(t, hc.expectTrace, b.Trace.GetTraceID().String(), "trace traceID")
			if hc.expectSpan != "" {
				assert.Equal(t, hc.expectSpan, b.Trace.GetSpanID().String(), "trace spanID")
			} else {
				assert.False(t, b.Trace.GetSpanID().IsZero(), "trace spanID is zero")
				assert.NotEqual(t, hc.expectParentSpan, b.Trace.GetSpanID().String(), "trace spanID")
			}
			assert.Equal(t, hc.expectSampled, b.Trace.IsSampled(), "sampled")
		})
	}
}

func bundleFor(t *testing.T, traceparent string) xoptrace.Bundle {
	parent, ok := xoptrace.TraceFromString(traceparent)
	require.True(t, ok)
	b := xoptrace.NewBundle()
	b.Parent = parent
	b.Trace = parent
	b.Trace.SpanID().SetString("91e961630d5d22de")
	return b
}

func TestInject(t *testing.T) {
	b := bundleFor(t, "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")
	b.State.SetString("congo=t61rcWkgMzE")
	b.Baggage.SetString("userId=alice")

	cases := []struct {
		name    string
		factory xopprop.Factory
		expect  map[string]string
	}{
		{
			name:    "w3c",
			factory: xopprop.W3C{},
			expect: map[string]string{
				"traceparent": "00-0af7651916cd43dd8448eb211c80319c-91e961630d5d22de-01",
				"tracestate":  "congo=t61rcWkgMzE",
				"baggage":     "userId=alice",
			},
		},
		{
			name:    "b3 single",
			factory: xopprop.B3{SingleHeader: true},
			expect: map[string]string{
				"b3": "0af7651916cd43dd8448eb211c80319c-91e961630d5d22de-1-b7ad6b7169203331",
			},
		},
		{
			name:    "b3 multi",
			factory: xopprop.B3{},
			expect: map[string]string{
				"x-b3-traceid":      "0af7651916cd43dd8448eb211c80319c",
				"x-b3-spanid":       "91e961630d5d22de",
				"x-b3-parentspanid": "b7ad6b7169203331",
				"x-b3-sampled":      "1",
			},
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			prop, err := tc.factory.Create(xopprop.Lowercase)
			require.NoError(t, err)
			inject, err := prop.Injector(xopprop.MapSetter)
			require.NoError(t, err)
			carrier := map[string]string{}
			require.NoError(t, inject(b, carrier))
			assert.Equal(t, tc.expect, carrier)
		})
	}
}

func TestInjectZeroTrace(t *testing.T) {
	prop, err := xopprop.W3C{}.Create(xopprop.Lowercase)
	require.NoError(t, err)
	inject, err := prop.Injector(xopprop.MapSetter)
	require.NoError(t, err)
	carrier := map[string]string{}
	require.NoError(t, inject(xoptrace.NewBundle(), carrier))
	assert.Empty(t, carrier)
}

func TestRoundTrip(t *testing.T) {
	b := bundleFor(t, "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-00")
	for _, f := range []xopprop.Factory{xopprop.W3C{}, xopprop.B3{}, xopprop.B3{SingleHeader: true}} {
		prop, err := f.Create(xopprop.HTTPHeader)
		require.NoError(t, err)
		inject, err := prop.Injector(xopprop.HeaderSetter)
		require.NoError(t, err)
		extract, err := prop.Extractor(xopprop.HeaderGetter)
		require.NoError(t, err)

		h := http.Header{}
		require.NoError(t, inject(b, h))
		extracted, err := extract(context.Background(), h)
		require.NoError(t, err)
		assert.True(t, extracted.Found, "%T found", f)
		assert.Equal(t, b.Trace.TraceID().String(), extracted.Bundle.Trace.TraceID().String(), "%T trace id", f)
		assert.False(t, extracted.Bundle.Trace.IsSampled(), "%T sampled", f)
	}
}

func TestKeys(t *testing.T) {
	prop, err := xopprop.W3C{}.Create(xopprop.HTTPHeader)
	require.NoError(t, err)
	assert.Equal(t, []string{"Traceparent", "Tracestate", "Baggage"}, prop.Keys())

	prop, err = xopprop.B3{}.Create(xopprop.Lowercase)
	require.NoError(t, err)
	assert.Equal(t, []string{"b3", "x-b3-traceid", "x-b3-spanid", "x-b3-parentspanid", "x-b3-sampled", "x-b3-flags"}, prop.Keys())
}

func TestKeyFactoryFailure(t *testing.T) {
	failing := func(name string) (string, error) {
		if name == "tracestate" {
			return "", errors.New("no tracestate here")
		}
		return name, nil
	}
	_, err := xopprop.W3C{}.Create(failing)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tracestate here")

	_, err = xopprop.Lowercase("bad key")
	assert.ErrorIs(t, err, xopprop.ErrInvalidKey)
	_, err = xopprop.HTTPHeader("")
	assert.ErrorIs(t, err, xopprop.ErrInvalidKey)
}

func TestNilGetterSetter(t *testing.T) {
	for _, f := range []xopprop.Factory{xopprop.W3C{}, xopprop.B3{}} {
		prop, err := f.Create(xopprop.Lowercase)
		require.NoError(t, err)
		_, err = prop.Injector(nil)
		assert.ErrorIs(t, err, xopprop.ErrNilSetter)
		_, err = prop.Extractor(nil)
		assert.ErrorIs(t, err, xopprop.ErrNilGetter)
	}
}

func TestCarriers(t *testing.T) {
	assert.ErrorIs(t, xopprop.HeaderSetter("nope", "a", "b"), xopprop.ErrCarrierType)
	assert.ErrorIs(t, xopprop.MapSetter(http.Header{}, "a", "b"), xopprop.ErrCarrierType)
	_, ok := xopprop.HeaderGetter(map[string]string{"a": "b"}, "a")
	assert.False(t, ok)
	v, ok := xopprop.MapGetter(map[string]string{"a": "b"}, "a")
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}
