// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pooling

import (
	"fmt"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pooling/pkg/core/layout"
	"github.com/gomlx/pooling/pkg/core/padding"
	"github.com/gomlx/pooling/pkg/core/shapes"
	"github.com/gomlx/pooling/pkg/core/tensors"
	"github.com/gomlx/pooling/pkg/core/window"
	"github.com/gomlx/pooling/pkg/support/xslices"
)

// IndicesDType is the dtype of the indices returned by max pooling when requested.
const IndicesDType = dtypes.Int64

// Call is the fully resolved description of a pooling, as handed to an Engine.
//
// A 1D pooling is described as a 2D pooling over an input with a leading unit spatial dimension, with
// Embedded1D set. See Embed1D.
type Call struct {
	Kind Kind
	Mode Mode

	// Embedded1D is set if the call was originally a 1D pooling.
	Embedded1D bool

	// NumSpatialDims of the call, 2 for embedded 1D poolings.
	NumSpatialDims int

	// Kernel, Strides and Padding are only set for ModeFixed.
	Kernel, Strides []int
	Padding         padding.Padding
	Algorithm       padding.Algorithm
	CeilMode        bool

	ChannelsAxis layout.ChannelsAxisConfig
	DataFormat   string

	// Exclusive averaging excludes padding positions from the divisor.
	Exclusive bool

	// DivisorOverride, if > 0, is the divisor of every window of a fixed average pooling.
	DivisorOverride float64

	// ReturnIndices is only valid for max pooling with channels-first layout.
	ReturnIndices bool

	// OutputSizes requested for ModeAdaptive, one per spatial dimension: negative values (window.KeepInputDim)
	// keep the corresponding input dimension.
	OutputSizes []int
}

// Result of a pooling execution.
type Result struct {
	Output *tensors.Tensor

	// Indices is only set if Call.ReturnIndices: for each output position, the flat index of the max value
	// within the spatial dimensions of the input.
	Indices *tensors.Tensor
}

// Divisor returns the divisor policy of a fixed average pooling.
func (c *Call) Divisor() window.DivisorPolicy {
	return window.DivisorPolicy{CountIncludePad: !c.Exclusive, Override: c.DivisorOverride}
}

// KernelVolume is the number of positions in a fixed window.
func (c *Call) KernelVolume() int {
	return xslices.Product(c.Kernel)
}

// checkRank returns an error wrapping ErrShapeMismatch if the input shape doesn't have the rank of the call.
func (c *Call) checkRank(inputShape shapes.Shape) error {
	if inputShape.Rank() != c.NumSpatialDims+2 {
		return ShapeMismatchf("%s pooling over %d spatial dimensions (%s) requires an input of rank %d, got %s",
			c.Kind, c.NumSpatialDims, c.DataFormat, c.NumSpatialDims+2, inputShape)
	}
	return nil
}

// Geometry resolves the output dimensions and effective paddings of a ModeFixed call for the given input.
func (c *Call) Geometry(inputShape shapes.Shape) (window.Geometry, error) {
	if c.Mode != ModeFixed {
		return window.Geometry{}, InvalidArgumentf("Geometry() is only defined for fixed pooling, got %s", c.Mode)
	}
	if err := c.checkRank(inputShape); err != nil {
		return window.Geometry{}, err
	}
	spatialDims := layout.SpatialDimensions(inputShape, c.ChannelsAxis)
	return window.Resolve(spatialDims, c.Kernel, c.Strides, c.Padding, c.CeilMode)
}

// AdaptivePlan resolves the windows of a ModeAdaptive call for the given input, one list per spatial dimension.
func (c *Call) AdaptivePlan(inputShape shapes.Shape) ([][]window.Window, error) {
	if c.Mode != ModeAdaptive {
		return nil, InvalidArgumentf("AdaptivePlan() is only defined for adaptive pooling, got %s", c.Mode)
	}
	if err := c.checkRank(inputShape); err != nil {
		return nil, err
	}
	spatialDims := layout.SpatialDimensions(inputShape, c.ChannelsAxis)
	outputDims, err := window.ResolveAdaptiveOutputDims(spatialDims, c.OutputSizes)
	if err != nil {
		return nil, err
	}
	return window.AdaptivePlan(spatialDims, outputDims)
}

// OutputShape returns the shape of the output (and of the indices, with dtype IndicesDType) of the call
// for the given input shape.
func (c *Call) OutputShape(inputShape shapes.Shape) (shapes.Shape, error) {
	if err := c.checkRank(inputShape); err != nil {
		return shapes.Invalid(), err
	}
	var outputDims []int
	switch c.Mode {
	case ModeFixed:
		g, err := c.Geometry(inputShape)
		if err != nil {
			return shapes.Invalid(), err
		}
		outputDims = g.OutputDims
	case ModeAdaptive:
		plan, err := c.AdaptivePlan(inputShape)
		if err != nil {
			return shapes.Invalid(), err
		}
		outputDims = xslices.Map(plan, func(windows []window.Window) int { return len(windows) })
	default:
		return shapes.Invalid(), InvalidArgumentf("invalid pooling mode %s", c.Mode)
	}
	rank := inputShape.Rank()
	dims := layout.ComposeDimensions(c.ChannelsAxis,
		inputShape.Dimensions[0], inputShape.Dimensions[layout.GetChannelsAxis(rank, c.ChannelsAxis)], outputDims)
	return shapes.Make(inputShape.DType, dims...), nil
}

// String implements fmt.Stringer.
func (c *Call) String() string {
	var sb strings.Builder
	_, _ = fmt.Fprintf(&sb, "%s%s%dD(%s", c.Mode, c.Kind, c.NumSpatialDims, c.DataFormat)
	if c.Embedded1D {
		sb.WriteString(", embedded 1D")
	}
	if c.Mode == ModeFixed {
		_, _ = fmt.Fprintf(&sb, ", kernel=%v, strides=%v, padding=%s", c.Kernel, c.Strides, c.Padding)
		if c.CeilMode {
			sb.WriteString(", ceil")
		}
		if c.Kind == KindAvg {
			_, _ = fmt.Fprintf(&sb, ", divisor=%s", c.Divisor())
		}
	} else {
		_, _ = fmt.Fprintf(&sb, ", output_size=%v", c.OutputSizes)
	}
	if c.ReturnIndices {
		sb.WriteString(", indices")
	}
	sb.WriteString(")")
	return sb.String()
}
