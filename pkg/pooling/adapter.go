// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pooling

import (
	"slices"

	"github.com/gomlx/pooling/pkg/core/layout"
	"github.com/gomlx/pooling/pkg/core/padding"
	"github.com/gomlx/pooling/pkg/core/shapes"
	"github.com/gomlx/pooling/pkg/core/tensors"
	"github.com/gomlx/pooling/pkg/support/xslices"
)

// Embed1D converts the parameters of a 1D pooling to the parameters of the equivalent 2D pooling over an input
// with a leading unit spatial dimension: kernel and stride 1, and no padding, for the new dimension.
//
// It is lossless: Project1DParams returns the original parameters.
func Embed1D(kernel, strides []int, pad padding.Padding) (kernel2, strides2 []int, pad2 padding.Padding) {
	kernel2 = xslices.Prepend(1, kernel)
	strides2 = xslices.Prepend(1, strides)
	pad2 = padding.Padding{NumDims: pad.NumDims + 1, Algorithm: pad.Algorithm}
	if pad.IsSymmetric() {
		pad2.Values = xslices.Prepend(0, pad.Values)
	} else {
		pad2.Values = append([]int{0, 0}, pad.Values...)
	}
	return
}

// Project1DParams is the inverse of Embed1D.
func Project1DParams(kernel2, strides2 []int, pad2 padding.Padding) (kernel, strides []int, pad padding.Padding) {
	kernel = slices.Clone(kernel2[1:])
	strides = slices.Clone(strides2[1:])
	pad = padding.Padding{NumDims: pad2.NumDims - 1, Algorithm: pad2.Algorithm}
	if pad2.IsSymmetric() {
		pad.Values = slices.Clone(pad2.Values[1:])
	} else {
		pad.Values = slices.Clone(pad2.Values[2:])
	}
	return
}

// embeddedAxis is the position of the unit spatial axis inserted by Embed1DShape: before the only spatial axis.
func embeddedAxis(channels layout.ChannelsAxisConfig) int {
	if channels == layout.ChannelsFirst {
		return 2
	}
	return 1
}

// Embed1DShape inserts the unit spatial axis to the shape of a 1D pooling input: `[N, C, L]` becomes
// `[N, C, 1, L]` for channels-first, and `[N, L, C]` becomes `[N, 1, L, C]` for channels-last.
func Embed1DShape(shape shapes.Shape, channels layout.ChannelsAxisConfig) shapes.Shape {
	embedded := shape.Clone()
	embedded.Dimensions = xslices.InsertAt(embedded.Dimensions, embeddedAxis(channels), 1)
	return embedded
}

// Project1DShape removes the unit spatial axis inserted by Embed1DShape.
func Project1DShape(shape shapes.Shape, channels layout.ChannelsAxisConfig) (shapes.Shape, error) {
	axis := embeddedAxis(channels)
	if shape.Rank() != 4 || shape.Dimensions[axis] != 1 {
		return shapes.Invalid(), ShapeMismatchf("shape %s is not an embedded 1D pooling shape: it should have rank 4 "+
			"with a unit axis #%d", shape, axis)
	}
	projected := shape.Clone()
	projected.Dimensions = xslices.RemoveAt(projected.Dimensions, axis)
	return projected, nil
}

// Project1D removes the unit spatial axis inserted by Embed1DShape from the output and indices of a result.
// The tensors share the data with the given result.
//
// The flat indices within the spatial dimensions are not changed, since the embedded axis has dimension 1.
func Project1D(result *Result, channels layout.ChannelsAxisConfig) (*Result, error) {
	project := func(t *tensors.Tensor) (*tensors.Tensor, error) {
		if t == nil {
			return nil, nil
		}
		shape, err := Project1DShape(t.Shape(), channels)
		if err != nil {
			return nil, err
		}
		return t.Reshape(shape.Dimensions...)
	}
	var projected Result
	var err error
	if projected.Output, err = project(result.Output); err != nil {
		return nil, err
	}
	if projected.Indices, err = project(result.Indices); err != nil {
		return nil, err
	}
	return &projected, nil
}

// embedCall converts a planned 1D Call into the equivalent embedded 2D Call.
func embedCall(call *Call) *Call {
	embedded := *call
	embedded.Embedded1D = true
	embedded.NumSpatialDims = 2
	embedded.DataFormat = layout.DataFormat(call.ChannelsAxis, 2)
	if call.Mode == ModeFixed {
		embedded.Kernel, embedded.Strides, embedded.Padding = Embed1D(call.Kernel, call.Strides, call.Padding)
	} else {
		embedded.OutputSizes = xslices.Prepend(1, call.OutputSizes)
	}
	return &embedded
}
