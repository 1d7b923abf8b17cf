// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pooling

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pooling/pkg/core/layout"
	"github.com/gomlx/pooling/pkg/core/padding"
	"github.com/gomlx/pooling/pkg/core/shapes"
	"github.com/gomlx/pooling/pkg/core/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanFixed(t *testing.T) {
	call, err := Plan(KindAvg, ModeFixed, false, Params{
		NumSpatialDims:  2,
		DataFormat:      "NHWC",
		Kernel:          []int{3},
		Strides:         []int{2, 1},
		Padding:         padding.PerAxisPairs{{0, 0}, {1, 1}, {1, 1}, {0, 0}},
		CountIncludePad: true,
	})
	require.NoError(t, err)
	assert.Equal(t, KindAvg, call.Kind)
	assert.Equal(t, ModeFixed, call.Mode)
	assert.False(t, call.Embedded1D)
	assert.Equal(t, 2, call.NumSpatialDims)
	assert.Equal(t, []int{3, 3}, call.Kernel)
	assert.Equal(t, []int{2, 1}, call.Strides)
	assert.Equal(t, []int{1, 1}, call.Padding.Values)
	assert.Equal(t, padding.AlgorithmExplicit, call.Algorithm)
	assert.Equal(t, layout.ChannelsLast, call.ChannelsAxis)
	assert.Equal(t, "NHWC", call.DataFormat)
	assert.False(t, call.Exclusive)
	assert.Equal(t, 9, call.KernelVolume())

	output, err := call.OutputShape(shapes.Make(dtypes.Float32, 8, 32, 24, 3))
	require.NoError(t, err)
	assert.Equal(t, []int{8, 16, 24, 3}, output.Dimensions)

	// Strides default to the kernel, and the data format to channels-first.
	call, err = Plan(KindMax, ModeFixed, true, Params{NumSpatialDims: 2, Kernel: []int{2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, call.Strides)
	assert.Equal(t, "NCHW", call.DataFormat)
	assert.Equal(t, []int{0, 0}, call.Padding.Values)
	assert.True(t, call.ReturnIndices)
	assert.Equal(t, "FixedMax2D(NCHW, kernel=[2 3], strides=[2 3], padding=EXPLICIT[0 0], indices)", call.String())

	// SAME: output is ceil(input/stride).
	call, err = Plan(KindMax, ModeFixed, false, Params{NumSpatialDims: 2, Kernel: []int{3}, Strides: []int{2},
		Padding: padding.Mode("same"), CeilMode: true})
	require.NoError(t, err)
	assert.Equal(t, padding.AlgorithmSame, call.Algorithm)
	output, err = call.OutputShape(shapes.Make(dtypes.Float32, 1, 3, 32, 31))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 16, 16}, output.Dimensions)
	g, err := call.Geometry(shapes.Make(dtypes.Float32, 1, 3, 32, 31))
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 1}, {1, 1}}, g.Paddings)
}

func TestPlanAdaptive(t *testing.T) {
	call, err := Plan(KindAvg, ModeAdaptive, false, Params{NumSpatialDims: 3, OutputSize: []int{2, window.KeepInputDim, 3}})
	require.NoError(t, err)
	assert.Equal(t, []int{2, window.KeepInputDim, 3}, call.OutputSizes)
	assert.True(t, call.Exclusive)
	assert.Empty(t, call.Kernel)

	input := shapes.Make(dtypes.Float64, 2, 4, 7, 5, 9)
	output, err := call.OutputShape(input)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4, 2, 5, 3}, output.Dimensions)
	plan, err := call.AdaptivePlan(input)
	require.NoError(t, err)
	assert.Equal(t, []window.Window{{Start: 0, End: 4}, {Start: 3, End: 7}}, plan[0])

	_, err = call.Geometry(input)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Broadcast of a single output size.
	call, err = Plan(KindMax, ModeAdaptive, true, Params{NumSpatialDims: 2, OutputSize: []int{4}})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 4}, call.OutputSizes)
}

func TestPlanErrors(t *testing.T) {
	for _, tc := range []struct {
		name          string
		kind          Kind
		mode          Mode
		returnIndices bool
		params        Params
	}{
		{"indices-with-channels-last", KindMax, ModeFixed, true,
			Params{NumSpatialDims: 2, DataFormat: "NHWC", Kernel: []int{2}}},
		{"indices-with-avg", KindAvg, ModeFixed, true, Params{NumSpatialDims: 2, Kernel: []int{2}}},
		{"format-of-other-dims", KindMax, ModeFixed, false,
			Params{NumSpatialDims: 2, DataFormat: "NCDHW", Kernel: []int{2}}},
		{"four-spatial-dims", KindMax, ModeFixed, false, Params{NumSpatialDims: 4, Kernel: []int{2}}},
		{"no-kernel", KindMax, ModeFixed, false, Params{NumSpatialDims: 2}},
		{"kernel-length", KindMax, ModeFixed, false, Params{NumSpatialDims: 2, Kernel: []int{2, 2, 2}}},
		{"zero-kernel", KindMax, ModeFixed, false, Params{NumSpatialDims: 2, Kernel: []int{0}}},
		{"negative-stride", KindMax, ModeFixed, false, Params{NumSpatialDims: 2, Kernel: []int{2}, Strides: []int{-1}}},
		{"valid-with-ceil", KindAvg, ModeFixed, false,
			Params{NumSpatialDims: 2, Kernel: []int{2}, Padding: padding.Mode("VALID"), CeilMode: true}},
		{"bad-padding", KindAvg, ModeFixed, false,
			Params{NumSpatialDims: 2, Kernel: []int{2}, Padding: padding.PerDim{1, 2, 3}}},
		{"divisor-on-max", KindMax, ModeFixed, false, Params{NumSpatialDims: 2, Kernel: []int{2}, DivisorOverride: 4}},
		{"negative-divisor", KindAvg, ModeFixed, false,
			Params{NumSpatialDims: 2, Kernel: []int{2}, DivisorOverride: -4}},
		{"output-size-on-fixed", KindAvg, ModeFixed, false,
			Params{NumSpatialDims: 2, Kernel: []int{2}, OutputSize: []int{3}}},
		{"adaptive-without-output-size", KindAvg, ModeAdaptive, false, Params{NumSpatialDims: 2}},
		{"adaptive-zero-output-size", KindAvg, ModeAdaptive, false, Params{NumSpatialDims: 2, OutputSize: []int{0}}},
		{"adaptive-with-kernel", KindMax, ModeAdaptive, false,
			Params{NumSpatialDims: 2, OutputSize: []int{3}, Kernel: []int{2}}},
		{"adaptive-count-include-pad", KindAvg, ModeAdaptive, false,
			Params{NumSpatialDims: 2, OutputSize: []int{3}, CountIncludePad: true}},
		{"adaptive-divisor", KindAvg, ModeAdaptive, false,
			Params{NumSpatialDims: 2, OutputSize: []int{3}, DivisorOverride: 2}},
		{"invalid-kind", Kind(7), ModeFixed, false, Params{NumSpatialDims: 2, Kernel: []int{2}}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Plan(tc.kind, tc.mode, tc.returnIndices, tc.params)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}

	// The output shape is only validated against an input.
	call, err := Plan(KindMax, ModeFixed, false, Params{NumSpatialDims: 2, Kernel: []int{5}})
	require.NoError(t, err)
	_, err = call.OutputShape(shapes.Make(dtypes.Float32, 1, 1, 4, 4))
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = call.OutputShape(shapes.Make(dtypes.Float32, 1, 1, 4, 4, 4))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestEmbed1D(t *testing.T) {
	for _, pad := range []padding.Padding{
		{Values: []int{2}, NumDims: 1, Algorithm: padding.AlgorithmExplicit},
		{Values: []int{0, 1}, NumDims: 1, Algorithm: padding.AlgorithmExplicit},
		{Values: []int{0}, NumDims: 1, Algorithm: padding.AlgorithmSame},
	} {
		kernel2, strides2, pad2 := Embed1D([]int{3}, []int{2}, pad)
		assert.Equal(t, []int{1, 3}, kernel2)
		assert.Equal(t, []int{1, 2}, strides2)
		assert.Equal(t, 2, pad2.NumDims)
		assert.Equal(t, pad.Algorithm, pad2.Algorithm)
		assert.Equal(t, [2]int{0, 0}, pad2.Pairs()[0])
		assert.Equal(t, pad.Pairs()[0], pad2.Pairs()[1])

		kernel, strides, pad1 := Project1DParams(kernel2, strides2, pad2)
		assert.Equal(t, []int{3}, kernel)
		assert.Equal(t, []int{2}, strides)
		assert.True(t, pad.Equal(pad1), "round-trip of %s gave %s", pad, pad1)
	}

	for _, channels := range []layout.ChannelsAxisConfig{layout.ChannelsFirst, layout.ChannelsLast} {
		shape := shapes.Make(dtypes.Float32, 8, 3, 17)
		embedded := Embed1DShape(shape, channels)
		if channels == layout.ChannelsFirst {
			assert.Equal(t, []int{8, 3, 1, 17}, embedded.Dimensions)
		} else {
			assert.Equal(t, []int{8, 1, 3, 17}, embedded.Dimensions)
		}
		projected, err := Project1DShape(embedded, channels)
		require.NoError(t, err)
		assert.True(t, shape.Equal(projected))
		assert.Equal(t, []int{8, 3, 17}, shape.Dimensions, "input shape must not be modified")
	}

	_, err := Project1DShape(shapes.Make(dtypes.Float32, 8, 3, 2, 17), layout.ChannelsFirst)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestPlan1D(t *testing.T) {
	call, err := Plan(KindMax, ModeFixed, true, Params{NumSpatialDims: 1, Kernel: []int{2}, Padding: padding.Scalar(1),
		CeilMode: true})
	require.NoError(t, err)
	assert.True(t, call.Embedded1D)
	assert.Equal(t, 2, call.NumSpatialDims)
	assert.Equal(t, "NCHW", call.DataFormat)
	assert.Equal(t, []int{1, 2}, call.Kernel)
	assert.Equal(t, []int{1, 2}, call.Strides)
	assert.Equal(t, []int{0, 1}, call.Padding.Values)
	assert.True(t, call.Padding.IsSymmetric())

	output, err := call.OutputShape(Embed1DShape(shapes.Make(dtypes.Float32, 2, 3, 7), call.ChannelsAxis))
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 1, 5}, output.Dimensions)

	call, err = Plan(KindAvg, ModeAdaptive, false, Params{NumSpatialDims: 1, DataFormat: "NLC", OutputSize: []int{3}})
	require.NoError(t, err)
	assert.Equal(t, "NHWC", call.DataFormat)
	assert.Equal(t, []int{1, 3}, call.OutputSizes)
}
