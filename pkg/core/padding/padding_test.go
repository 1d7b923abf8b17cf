// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package padding

import (
	"testing"

	"github.com/gomlx/pooling/pkg/core/layout"
	"github.com/gomlx/pooling/pkg/support/poolerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	for _, tc := range []struct {
		name     string
		raw      Raw
		numDims  int
		channels layout.ChannelsAxisConfig
		ceilMode bool
		want     Padding
	}{
		{"same", Mode("SAME"), 2, layout.ChannelsFirst, false,
			Padding{Values: []int{0, 0}, NumDims: 2, Algorithm: AlgorithmSame}},
		{"same-lower-ceil", Mode("same"), 2, layout.ChannelsFirst, true,
			Padding{Values: []int{0, 0}, NumDims: 2, Algorithm: AlgorithmSame}},
		{"valid-mixed-case", Mode("Valid"), 3, layout.ChannelsLast, false,
			Padding{Values: []int{0, 0, 0}, NumDims: 3, Algorithm: AlgorithmValid}},
		{"scalar", Scalar(2), 3, layout.ChannelsFirst, false,
			Padding{Values: []int{2, 2, 2}, NumDims: 3, Algorithm: AlgorithmExplicit}},
		{"per-dim", PerDim{1, 2}, 2, layout.ChannelsFirst, false,
			Padding{Values: []int{1, 2}, NumDims: 2, Algorithm: AlgorithmExplicit}},
		{"per-dim-flat-symmetric", PerDimFlat{1, 1, 2, 2}, 2, layout.ChannelsFirst, false,
			Padding{Values: []int{1, 2}, NumDims: 2, Algorithm: AlgorithmExplicit}},
		{"per-dim-flat-asymmetric", PerDimFlat{0, 1, 2, 2}, 2, layout.ChannelsFirst, false,
			Padding{Values: []int{0, 1, 2, 2}, NumDims: 2, Algorithm: AlgorithmExplicit}},
		{"pairs-channels-first", PerAxisPairs{{0, 0}, {0, 0}, {1, 1}, {2, 2}}, 2, layout.ChannelsFirst, false,
			Padding{Values: []int{1, 2}, NumDims: 2, Algorithm: AlgorithmExplicit}},
		{"pairs-channels-last", PerAxisPairs{{0, 0}, {1, 1}, {1, 1}, {0, 0}}, 2, layout.ChannelsLast, false,
			Padding{Values: []int{1, 1}, NumDims: 2, Algorithm: AlgorithmExplicit}},
		{"pairs-asymmetric", PerAxisPairs{{0, 0}, {0, 0}, {0, 1}}, 1, layout.ChannelsFirst, true,
			Padding{Values: []int{0, 1}, NumDims: 1, Algorithm: AlgorithmExplicit}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.raw, tc.numDims, tc.channels, tc.ceilMode)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeErrors(t *testing.T) {
	for _, tc := range []struct {
		name     string
		raw      Raw
		numDims  int
		channels layout.ChannelsAxisConfig
		ceilMode bool
	}{
		{"valid-with-ceil", Mode("VALID"), 2, layout.ChannelsFirst, true},
		{"unknown-mode", Mode("FULL"), 2, layout.ChannelsFirst, false},
		{"explicit-is-not-a-mode", Mode("EXPLICIT"), 2, layout.ChannelsFirst, false},
		{"pairs-padded-channels", PerAxisPairs{{0, 0}, {1, 1}, {1, 1}, {0, 0}}, 2, layout.ChannelsFirst, false},
		{"pairs-padded-batch", PerAxisPairs{{1, 0}, {0, 0}, {1, 1}, {0, 0}}, 2, layout.ChannelsLast, false},
		{"pairs-wrong-count", PerAxisPairs{{0, 0}, {0, 0}, {1, 1}}, 2, layout.ChannelsFirst, false},
		{"per-dim-wrong-count", PerDim{1, 2, 3}, 2, layout.ChannelsFirst, false},
		{"per-dim-flat-wrong-count", PerDimFlat{1, 2, 3}, 2, layout.ChannelsFirst, false},
		{"negative-scalar", Scalar(-1), 2, layout.ChannelsFirst, false},
		{"negative-per-dim", PerDim{1, -2}, 2, layout.ChannelsFirst, false},
		{"negative-pair", PerAxisPairs{{0, 0}, {0, 0}, {-1, 1}}, 1, layout.ChannelsFirst, false},
		{"nil", nil, 2, layout.ChannelsFirst, false},
		{"no-spatial-dims", Scalar(1), 0, layout.ChannelsFirst, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.raw, tc.numDims, tc.channels, tc.ceilMode)
			require.Error(t, err)
			assert.True(t, poolerr.IsInvalidArgument(err), "got error %v", err)
		})
	}
}

func TestPairsAndCollapse(t *testing.T) {
	p := Padding{Values: []int{1, 2}, NumDims: 2}
	assert.True(t, p.IsSymmetric())
	assert.Equal(t, [][2]int{{1, 1}, {2, 2}}, p.Pairs())

	p = Padding{Values: []int{0, 1, 2, 2}, NumDims: 2}
	assert.False(t, p.IsSymmetric())
	assert.Equal(t, [][2]int{{0, 1}, {2, 2}}, p.Pairs())

	// Normalizing an already canonical padding, in any of its notations, is a no-op.
	for _, raw := range []Raw{PerDimFlat{3, 3, 4, 4}, PerDimFlat{0, 1, 2, 2}, PerDim{5, 0}} {
		first, err := Normalize(raw, 2, layout.ChannelsFirst, false)
		require.NoError(t, err)
		again, err := Normalize(PerDimFlat(flatten(first.Pairs())), 2, layout.ChannelsFirst, false)
		require.NoError(t, err)
		assert.True(t, first.Equal(again), "%s != %s", first, again)
		if first.IsSymmetric() {
			again, err = Normalize(PerDim(first.Values), 2, layout.ChannelsFirst, false)
			require.NoError(t, err)
			assert.True(t, first.Equal(again))
		}
	}

	// Normalize must not alias its input.
	raw := PerDim{1, 2}
	got, err := Normalize(raw, 2, layout.ChannelsFirst, false)
	require.NoError(t, err)
	raw[0] = 7
	assert.Equal(t, []int{1, 2}, got.Values)
	assert.Equal(t, "EXPLICIT[1 2]", got.String())
}

func flatten(pairs [][2]int) []int {
	var flat []int
	for _, pair := range pairs {
		flat = append(flat, pair[0], pair[1])
	}
	return flat
}

func TestFromAny(t *testing.T) {
	for _, tc := range []struct {
		value any
		want  Raw
	}{
		{"same", Mode("same")},
		{3, Scalar(3)},
		{int64(3), Scalar(3)},
		{[]int{1, 2}, PerDim{1, 2}},
		{[]int{1, 2, 3, 4}, PerDimFlat{1, 2, 3, 4}},
		{[][]int{{0, 0}, {0, 0}, {1, 1}, {2, 2}}, PerAxisPairs{{0, 0}, {0, 0}, {1, 1}, {2, 2}}},
		{[][2]int{{0, 0}, {0, 0}, {1, 1}, {2, 2}}, PerAxisPairs{{0, 0}, {0, 0}, {1, 1}, {2, 2}}},
		{PerDim{4, 4}, PerDim{4, 4}},
	} {
		got, err := FromAny(tc.value, 2)
		require.NoErrorf(t, err, "FromAny(%#v)", tc.value)
		assert.Equal(t, tc.want, got)
	}

	for _, value := range []any{nil, 1.5, []int{1, 2, 3}, [][]int{{0, 0, 0}}, []float64{1, 2}} {
		_, err := FromAny(value, 2)
		require.Errorf(t, err, "FromAny(%#v)", value)
		assert.True(t, poolerr.IsInvalidArgument(err))
	}
}

func TestParse(t *testing.T) {
	for _, tc := range []struct {
		text string
		want Raw
	}{
		{"SAME", Mode("SAME")},
		{" valid ", Mode("valid")},
		{"2", Scalar(2)},
		{"1, 2", PerDim{1, 2}},
		{"0,1,2,2", PerDimFlat{0, 1, 2, 2}},
		{"[0,0],[0,0],[1,1],[2,2]", PerAxisPairs{{0, 0}, {0, 0}, {1, 1}, {2, 2}}},
		{"[[0, 0], [1, 1], [1, 1], [0, 0]]", PerAxisPairs{{0, 0}, {1, 1}, {1, 1}, {0, 0}}},
	} {
		got, err := Parse(tc.text, 2)
		require.NoErrorf(t, err, "Parse(%q)", tc.text)
		assert.Equalf(t, tc.want, got, "Parse(%q)", tc.text)
	}

	for _, text := range []string{"", "1,2,3", "[0,0],[1]", "[0,0", "1,x", "[[0,0],[a,1]]"} {
		_, err := Parse(text, 2)
		require.Errorf(t, err, "Parse(%q)", text)
		assert.True(t, poolerr.IsInvalidArgument(err))
	}
}
