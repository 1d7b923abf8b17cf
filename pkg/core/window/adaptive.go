// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package window

import (
	"github.com/gomlx/pooling/pkg/support/poolerr"
)

// KeepInputDim can be used as a requested adaptive output dimension, to keep the input dimension unchanged.
// Any negative value has the same effect.
const KeepInputDim = -1

// AdaptiveStart returns the first input position of the window for output position outputIndex:
// floor(outputIndex * inputDim / outputDim).
func AdaptiveStart(outputIndex, inputDim, outputDim int) int {
	return (outputIndex * inputDim) / outputDim
}

// AdaptiveEnd returns the end (exclusive) of the window for output position outputIndex:
// ceil((outputIndex+1) * inputDim / outputDim).
func AdaptiveEnd(outputIndex, inputDim, outputDim int) int {
	return ((outputIndex+1)*inputDim + outputDim - 1) / outputDim
}

// AdaptiveWindows returns the windows of an adaptive pooling of inputDim positions into outputDim positions.
//
// Windows are never empty (also when outputDim > inputDim), never exceed the input, and together cover every
// input position: the first window starts at 0, the last one ends at inputDim and there are no gaps. Adjacent
// windows overlap when inputDim is not divisible by outputDim.
func AdaptiveWindows(inputDim, outputDim int) ([]Window, error) {
	if inputDim < 1 || outputDim < 1 {
		return nil, poolerr.InvalidArgumentf(
			"adaptive pooling requires positive input and output sizes, got input=%d, output=%d", inputDim, outputDim)
	}
	windows := make([]Window, outputDim)
	for ii := range windows {
		windows[ii] = Window{
			Start: AdaptiveStart(ii, inputDim, outputDim),
			End:   AdaptiveEnd(ii, inputDim, outputDim),
		}
	}
	return windows, nil
}

// AdaptivePlan returns the AdaptiveWindows for each spatial dimension.
func AdaptivePlan(inputDims, outputDims []int) ([][]Window, error) {
	if len(inputDims) != len(outputDims) {
		return nil, poolerr.InvalidArgumentf("adaptive pooling over %d spatial dimensions %v given output sizes %v",
			len(inputDims), inputDims, outputDims)
	}
	plan := make([][]Window, len(inputDims))
	for dim := range plan {
		var err error
		plan[dim], err = AdaptiveWindows(inputDims[dim], outputDims[dim])
		if err != nil {
			return nil, err
		}
	}
	return plan, nil
}

// ResolveAdaptiveOutputDims replaces the requested output dimensions that are negative (see KeepInputDim) by the
// corresponding input dimension. A requested dimension of 0 is an error.
func ResolveAdaptiveOutputDims(inputDims, requested []int) ([]int, error) {
	if len(inputDims) != len(requested) {
		return nil, poolerr.InvalidArgumentf("adaptive pooling over %d spatial dimensions %v given output sizes %v",
			len(inputDims), inputDims, requested)
	}
	outputDims := make([]int, len(requested))
	for dim, r := range requested {
		switch {
		case r < 0:
			outputDims[dim] = inputDims[dim]
		case r == 0:
			return nil, poolerr.InvalidArgumentf("adaptive pooling output size %v: spatial dimension #%d is 0",
				requested, dim)
		default:
			outputDims[dim] = r
		}
	}
	return outputDims, nil
}
