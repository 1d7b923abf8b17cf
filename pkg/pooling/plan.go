// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package pooling plans N-dimensional (1D, 2D and 3D) average and max poolings, with fixed-size or adaptive
// windows.
//
// Plan normalizes the user parameters (kernel, strides, any of the padding notations of package padding, data
// format, averaging divisor options) into a Call, which is executed by an Engine. The fluent builders (MaxPool,
// AvgPool, AdaptiveMaxPool, AdaptiveAvgPool and their 1D/2D/3D variants) do the planning, execution and shape
// bookkeeping in one go.
//
// 1D poolings are planned as 2D poolings with a leading unit spatial dimension (see Embed1D), and the builders
// project the results back to 1D.
package pooling

import (
	"slices"

	"github.com/gomlx/pooling/pkg/core/layout"
	"github.com/gomlx/pooling/pkg/core/padding"
	"github.com/gomlx/pooling/pkg/core/window"
	"github.com/gomlx/pooling/pkg/support/xslices"
	"k8s.io/klog/v2"
)

// Params holds the user parameters of a pooling. Which ones apply depends on the Mode.
type Params struct {
	// NumSpatialDims is the dimensionality of the pooling: 1, 2 or 3.
	NumSpatialDims int

	// DataFormat is one of "NCL"/"NLC", "NCHW"/"NHWC" or "NCDHW"/"NDHWC", according to NumSpatialDims.
	// If empty, it defaults to the channels-first format.
	DataFormat string

	// Kernel is required for ModeFixed: either one value for all spatial dimensions or one per spatial dimension.
	Kernel []int

	// Strides for ModeFixed, with the same format as Kernel. If empty it defaults to Kernel.
	Strides []int

	// Padding for ModeFixed. If nil it defaults to no padding.
	Padding padding.Raw

	// CeilMode rounds the output size up instead of down, for ModeFixed.
	CeilMode bool

	// CountIncludePad includes the padding positions in the divisor of fixed average pooling.
	CountIncludePad bool

	// DivisorOverride, if not 0, is the divisor of every window of fixed average pooling. It must be positive.
	DivisorOverride float64

	// OutputSize is required for ModeAdaptive: either one value for all spatial dimensions or one per spatial
	// dimension. Negative values (window.KeepInputDim) keep the input dimension.
	OutputSize []int
}

// Plan normalizes the parameters of a pooling of the given kind and mode into a Call.
//
// It doesn't depend on the input: the output shape is derived later with Call.OutputShape. All errors
// wrap ErrInvalidArgument. Plan is a pure function and safe for concurrent use.
func Plan(kind Kind, mode Mode, returnIndices bool, params Params) (*Call, error) {
	if !kind.IsAKind() {
		return nil, InvalidArgumentf("invalid pooling kind %s", kind)
	}
	if !mode.IsAMode() {
		return nil, InvalidArgumentf("invalid pooling mode %s", mode)
	}
	numDims := params.NumSpatialDims
	dataFormat := params.DataFormat
	if dataFormat == "" && numDims >= 1 && numDims <= layout.MaxSpatialDims {
		dataFormat = layout.DataFormat(layout.ChannelsFirst, numDims)
	}
	channels, err := layout.FromDataFormat(dataFormat, numDims)
	if err != nil {
		return nil, err
	}
	if returnIndices {
		if kind != KindMax {
			return nil, InvalidArgumentf("return_indices is only supported by max pooling, not %s pooling", kind)
		}
		if channels != layout.ChannelsFirst {
			return nil, InvalidArgumentf("return_indices is only supported with channels-first data format "+
				"(%q), got %q", layout.DataFormat(layout.ChannelsFirst, numDims), dataFormat)
		}
	}
	if params.DivisorOverride != 0 {
		if kind != KindAvg || mode != ModeFixed {
			return nil, InvalidArgumentf("divisor_override=%g is only supported by fixed average pooling, "+
				"not by %s %s pooling", params.DivisorOverride, mode, kind)
		}
		if err = window.ValidateDivisorOverride(params.DivisorOverride); err != nil {
			return nil, err
		}
	}

	call := &Call{
		Kind:            kind,
		Mode:            mode,
		NumSpatialDims:  numDims,
		ChannelsAxis:    channels,
		DataFormat:      dataFormat,
		Exclusive:       !params.CountIncludePad,
		DivisorOverride: params.DivisorOverride,
		ReturnIndices:   returnIndices,
	}
	switch mode {
	case ModeFixed:
		err = planFixed(call, params)
	case ModeAdaptive:
		err = planAdaptive(call, params)
	}
	if err != nil {
		return nil, err
	}
	if numDims == 1 {
		call = embedCall(call)
	}
	if klog.V(1).Enabled() {
		klog.Infof("pooling: planned %s", call)
	}
	return call, nil
}

func planFixed(call *Call, params Params) error {
	numDims := call.NumSpatialDims
	if len(params.OutputSize) > 0 {
		return InvalidArgumentf("output_size=%v is only used by adaptive pooling", params.OutputSize)
	}
	if len(params.Kernel) == 0 {
		return InvalidArgumentf("kernel_size is required for fixed %s pooling", call.Kind)
	}
	var err error
	call.Kernel, err = perDimValues("kernel_size", params.Kernel, numDims)
	if err != nil {
		return err
	}
	call.Strides = slices.Clone(call.Kernel)
	if len(params.Strides) > 0 {
		call.Strides, err = perDimValues("stride", params.Strides, numDims)
		if err != nil {
			return err
		}
	}
	raw := params.Padding
	if raw == nil {
		raw = padding.Scalar(0)
	}
	call.Padding, err = padding.Normalize(raw, numDims, call.ChannelsAxis, params.CeilMode)
	if err != nil {
		return err
	}
	call.Algorithm = call.Padding.Algorithm
	call.CeilMode = params.CeilMode
	return nil
}

func planAdaptive(call *Call, params Params) error {
	if len(params.Kernel) > 0 || len(params.Strides) > 0 || params.Padding != nil || params.CeilMode {
		return InvalidArgumentf("adaptive %s pooling derives its windows from the output size, it doesn't accept "+
			"kernel_size (%v), stride (%v), padding (%v) or ceil_mode (%v)",
			call.Kind, params.Kernel, params.Strides, params.Padding, params.CeilMode)
	}
	if params.CountIncludePad {
		return InvalidArgumentf("adaptive average pooling always divides by the number of elements in the window, " +
			"count_include_pad is not supported")
	}
	if len(params.OutputSize) == 0 {
		return InvalidArgumentf("output_size is required for adaptive %s pooling", call.Kind)
	}
	numDims := call.NumSpatialDims
	if len(params.OutputSize) != 1 && len(params.OutputSize) != numDims {
		return InvalidArgumentf("output_size=%v must have 1 or %d values", params.OutputSize, numDims)
	}
	call.OutputSizes = make([]int, numDims)
	for dim := range call.OutputSizes {
		v := params.OutputSize[0]
		if len(params.OutputSize) > 1 {
			v = params.OutputSize[dim]
		}
		if v == 0 {
			return InvalidArgumentf("output_size=%v must be positive (or negative to keep the input dimension)",
				params.OutputSize)
		}
		if v < 0 {
			v = window.KeepInputDim
		}
		call.OutputSizes[dim] = v
	}
	return nil
}

// perDimValues broadcasts a single value to all numDims spatial dimensions, or checks that there is one value per
// spatial dimension. All values must be positive.
func perDimValues(name string, values []int, numDims int) ([]int, error) {
	var perDim []int
	switch len(values) {
	case 0:
		return nil, nil
	case 1:
		perDim = xslices.SliceWithValue(numDims, values[0])
	case numDims:
		perDim = slices.Clone(values)
	default:
		return nil, InvalidArgumentf("%s=%v must have 1 or %d values", name, values, numDims)
	}
	for _, v := range perDim {
		if v <= 0 {
			return nil, InvalidArgumentf("%s=%v must only have positive values", name, values)
		}
	}
	return perDim, nil
}
