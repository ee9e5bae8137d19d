package cell

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMissing(t *testing.T) {
	t.Parallel()

	missing := []any{nil, "", "   ", "\t\n"}
	for _, v := range missing {
		assert.True(t, IsMissing(v), "IsMissing(%q)", v)
	}

	present := []any{0.0, 0, false, "N/A", "0", " x ", []any{}}
	for _, v := range present {
		assert.False(t, IsMissing(v), "IsMissing(%#v)", v)
	}
}

func TestParseNumber(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want float64
		ok   bool
	}{
		{"42", 42, true},
		{" 3.5 ", 3.5, true},
		{"-1e3", -1000, true},
		{"12abc", 0, false},
		{"abc", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"Infinity", 0, false},
		{true, 0, false},
		{nil, 0, false},
		{7.25, 7.25, true},
		{int64(9), 9, true},
		{json.Number("11"), 11, true},
		{math.Inf(1), 0, false},
	}
	for _, tc := range cases {
		got, ok := ParseNumber(tc.in)
		assert.Equal(t, tc.ok, ok, "ParseNumber(%#v) ok", tc.in)
		assert.Equal(t, tc.want, got, "ParseNumber(%#v)", tc.in)
	}
}

func TestRound2(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 2.5, Round2(2.5))
	assert.Equal(t, 0.33, Round2(1.0/3.0))
	assert.Equal(t, 1.01, Round2(1.005000001))
	assert.Equal(t, -1.24, Round2(-1.235000001))
	assert.Equal(t, 0.0, Round2(-0.001))
	assert.False(t, math.Signbit(Round2(-0.001)))
}
