package secondary_test

import (
	"strconv"
	"strings"
	"testing"

	secondary "github.com/xoplog/secondary-sampling-go"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	type expect struct {
		key     string
		sampled bool
		params  string
	}
	cases := []struct {
		name   string
		value  string
		expect []expect
		err    bool
	}{
		{name: "empty", value: ""},
		{name: "blank", value: "  "},
		{name: "one", value: "audit", expect: []expect{{key: "audit"}}},
		{name: "sampled", value: "audit;sampled=1", expect: []expect{{key: "audit", sampled: true}}},
		{name: "sampled words", value: "a;sampled=true,b;sampled=false", expect: []expect{{key: "a", sampled: true}, {key: "b"}}},
		{
			name:  "params and spaces",
			value: " exp1;sampled=1;ttl=2 , exp2;arm=b ",
			expect: []expect{
				{key: "exp1", sampled: true, params: "ttl=2"},
				{key: "exp2", params: "arm=b"},
			},
		},
		{
			name:  "duplicate key last wins",
			value: "a;sampled=1,b,a;ttl=1",
			expect: []expect{
				{key: "a", params: "ttl=1"},
				{key: "b"},
			},
		},
		{name: "case sensitive", value: "Audit,audit", expect: []expect{{key: "Audit"}, {key: "audit"}}},
		{name: "empty value param", value: "a;spanId=", expect: []expect{{key: "a", params: "spanId="}}},
		{name: "trailing comma", value: "a,", err: true},
		{name: "empty entry", value: "a,,b", err: true},
		{name: "param without value", value: "a;ttl", err: true},
		{name: "bad sampled", value: "a;sampled=yes", err: true},
		{name: "empty key", value: ";ttl=1", err: true},
		{name: "space in key", value: "a b", err: true},
		{name: "non ascii", value: "café", err: true},
		{name: "too long", value: strings.Repeat("a", secondary.DefaultMaxFieldLength+1), err: true},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			states, err := secondary.Decode(tc.value, secondary.DefaultMaxFieldLength)
			if tc.err {
				require.Error(t, err)
				assert.ErrorIs(t, err, strconv.ErrSyntax)
				return
			}
			require.NoError(t, err)
			require.Len(t, states, len(tc.expect))
			for i, e := range tc.expect {
				assert.Equal(t, e.key, states[i].Key(), "key %d", i)
				assert.Equal(t, e.sampled, states[i].Sampled(), "sampled %d", i)
				var params []string
				for _, p := range states[i].Params() {
					params = append(params, p.Name+"="+p.Value)
				}
				assert.Equal(t, e.params, strings.Join(params, ";"), "params %d", i)
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	exp1 := secondary.MustNewState("exp1").WithSampled(true)
	exp2 := secondary.MustNewState("exp2").WithTTL(1)
	for _, order := range [][]secondary.State{{exp1, exp2}, {exp2, exp1}} {
		encoded := secondary.Encode(order)
		decoded, err := secondary.Decode(encoded, 0)
		require.NoError(t, err)
		got := map[string]bool{}
		for _, s := range decoded {
			got[s.Key()] = s.Sampled()
		}
		assert.Equal(t, map[string]bool{"exp1": true, "exp2": false}, got, encoded)
		assert.Equal(t, order, decoded, "states survive exactly")
	}
	assert.Equal(t, "exp1;sampled=1,exp2;ttl=1", secondary.Encode([]secondary.State{exp1, exp2}))
	assert.Equal(t, "", secondary.Encode(nil))
}
