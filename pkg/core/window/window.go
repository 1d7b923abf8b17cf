// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package window computes the geometry of pooling windows: output sizes for fixed-size windows (under floor or
// ceil rounding and the EXPLICIT, SAME and VALID padding algorithms), window boundaries for adaptive pooling and
// the divisor used by average pooling.
//
// All functions are pure, and errors wrap poolerr.ErrInvalidArgument.
package window

import (
	"fmt"

	"github.com/gomlx/pooling/pkg/core/padding"
	"github.com/gomlx/pooling/pkg/support/poolerr"
)

// Window is the half-open interval [Start, End) of input positions along one spatial dimension.
//
// For fixed-size windows Start may be negative and End may be larger than the input dimension: those
// positions fall in the padding.
type Window struct {
	Start, End int
}

// Size of the window, including padding positions.
func (w Window) Size() int { return w.End - w.Start }

// Clip the window to the input positions [0, inputDim). The result may be empty.
func (w Window) Clip(inputDim int) Window {
	w.Start = max(w.Start, 0)
	w.End = min(w.End, inputDim)
	if w.End < w.Start {
		w.End = w.Start
	}
	return w
}

// String implements fmt.Stringer.
func (w Window) String() string { return fmt.Sprintf("[%d, %d)", w.Start, w.End) }

// Geometry of a fixed-size window pooling: the output spatial dimensions and the [before, after] padding
// actually used for each spatial dimension (for SAME they are derived from the input dimensions).
type Geometry struct {
	OutputDims []int
	Paddings   [][2]int
}

// Window returns the window, in input coordinates, used by output position outputIndex along the spatial
// dimension dim.
func (g Geometry) Window(dim, outputIndex, kernel, stride int) Window {
	return FixedWindow(outputIndex, kernel, stride, g.Paddings[dim][0])
}

// FixedWindow returns the window, in input coordinates, used by output position outputIndex of a pooling with
// the given kernel, stride and padding before the input.
func FixedWindow(outputIndex, kernel, stride, padBefore int) Window {
	start := outputIndex*stride - padBefore
	return Window{Start: start, End: start + kernel}
}

// Resolve the output dimensions and the effective paddings of a fixed-size window pooling.
//
// inputDims, kernel and strides hold one value per spatial dimension, and must match pad.NumDims.
//
//   - AlgorithmExplicit: output = floor((input + before + after - kernel) / stride) + 1, or ceil instead of
//     floor if ceilMode is set.
//   - AlgorithmSame: output = ceil(input / stride), and the total padding max(0, (output-1)*stride + kernel - input)
//     is split with the extra position (if odd) added after.
//   - AlgorithmValid: no padding, output = floor((input - kernel) / stride) + 1.
//
// It returns an error if any output dimension is <= 0.
func Resolve(inputDims, kernel, strides []int, pad padding.Padding, ceilMode bool) (Geometry, error) {
	numDims := len(inputDims)
	if numDims == 0 {
		return Geometry{}, poolerr.InvalidArgumentf("pooling requires at least one spatial dimension")
	}
	if len(kernel) != numDims || len(strides) != numDims || pad.NumDims != numDims {
		return Geometry{}, poolerr.InvalidArgumentf(
			"pooling over %d spatial dimensions %v given kernel %v, strides %v and padding %s with different lengths",
			numDims, inputDims, kernel, strides, pad)
	}
	if pad.Algorithm == padding.AlgorithmValid && ceilMode {
		return Geometry{}, poolerr.InvalidArgumentf("padding \"VALID\" requires ceil_mode to be false")
	}
	g := Geometry{
		OutputDims: make([]int, numDims),
		Paddings:   make([][2]int, numDims),
	}
	pairs := pad.Pairs()
	for dim := range numDims {
		in, k, s := inputDims[dim], kernel[dim], strides[dim]
		if in <= 0 || k <= 0 || s <= 0 {
			return Geometry{}, poolerr.InvalidArgumentf(
				"spatial dimension #%d: input (%d), kernel (%d) and stride (%d) must all be positive", dim, in, k, s)
		}
		switch pad.Algorithm {
		case padding.AlgorithmExplicit:
			g.Paddings[dim] = pairs[dim]
			g.OutputDims[dim] = OutputDim(in, k, s, pairs[dim][0], pairs[dim][1], ceilMode)
		case padding.AlgorithmSame:
			g.OutputDims[dim], g.Paddings[dim] = SamePadding(in, k, s)
		case padding.AlgorithmValid:
			g.OutputDims[dim] = OutputDim(in, k, s, 0, 0, false)
		default:
			return Geometry{}, poolerr.InvalidArgumentf("invalid padding algorithm %s", pad.Algorithm)
		}
		if g.OutputDims[dim] <= 0 {
			return Geometry{}, poolerr.InvalidArgumentf(
				"spatial dimension #%d: output size %d is not positive (input=%d, kernel=%d, stride=%d, padding=%v, "+
					"algorithm=%s)", dim, g.OutputDims[dim], in, k, s, g.Paddings[dim], pad.Algorithm)
		}
	}
	return g, nil
}

// OutputDims returns only the output dimensions of Resolve.
func OutputDims(inputDims, kernel, strides []int, pad padding.Padding, ceilMode bool) ([]int, error) {
	g, err := Resolve(inputDims, kernel, strides, pad, ceilMode)
	if err != nil {
		return nil, err
	}
	return g.OutputDims, nil
}

// OutputDim returns the output size for one spatial dimension with explicit paddings. It may be <= 0 if the
// kernel doesn't fit the padded input.
func OutputDim(inputDim, kernel, stride, padBefore, padAfter int, ceilMode bool) int {
	span := inputDim + padBefore + padAfter - kernel
	if ceilMode {
		return ceilDiv(span, stride) + 1
	}
	return floorDiv(span, stride) + 1
}

// SamePadding returns the output size ceil(input/stride) and the [before, after] padding needed to achieve it.
// The padding is never negative.
func SamePadding(inputDim, kernel, stride int) (outputDim int, pad [2]int) {
	outputDim = ceilDiv(inputDim, stride)
	total := max(0, (outputDim-1)*stride+kernel-inputDim)
	pad[0] = total / 2
	pad[1] = total - pad[0]
	return
}

// floorDiv rounds towards negative infinity. b must be positive.
func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// ceilDiv rounds towards positive infinity. b must be positive.
func ceilDiv(a, b int) int {
	return -floorDiv(-a, b)
}
