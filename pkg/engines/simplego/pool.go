// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/pooling/internal/workerspool"
	"github.com/gomlx/pooling/pkg/core/layout"
	"github.com/gomlx/pooling/pkg/core/shapes"
	"github.com/gomlx/pooling/pkg/core/tensors"
	"github.com/gomlx/pooling/pkg/core/window"
	"github.com/gomlx/pooling/pkg/pooling"
	"github.com/x448/float16"
)

// job holds everything needed to execute one pooling call.
//
// The input and output are seen as batchSize*channels planes, each one holding the spatial dimensions. A plane
// is contiguous for channels-first layouts, and strided by the number of channels for channels-last.
type job struct {
	call      *pooling.Call
	pool      *workerspool.Pool
	numPlanes int
	channels  int

	inSpatial, outSpatial     []int
	inPlaneSize, outPlaneSize int
	inSpatialStrides          []int
	channelsLast              bool
	windows                   [][]window.Window
	kernelVolume              int
	divisor                   window.DivisorPolicy
	input, output, indices    *tensors.Tensor
	indicesFlat               []int64
}

func newJob(call *pooling.Call, x *tensors.Tensor, pool *workerspool.Pool) (*job, error) {
	inputShape := x.Shape()
	outputShape, err := call.OutputShape(inputShape)
	if err != nil {
		return nil, err
	}
	rank := inputShape.Rank()
	channelsAxis := layout.GetChannelsAxis(rank, call.ChannelsAxis)
	j := &job{
		call:         call,
		pool:         pool,
		channels:     inputShape.Dim(channelsAxis),
		inSpatial:    layout.SpatialDimensions(inputShape, call.ChannelsAxis),
		outSpatial:   layout.SpatialDimensions(outputShape, call.ChannelsAxis),
		channelsLast: call.ChannelsAxis == layout.ChannelsLast,
		divisor:      call.Divisor(),
		input:        x,
		output:       tensors.FromShape(outputShape),
	}
	j.numPlanes = inputShape.Dim(0) * j.channels
	inPlaneShape := shapes.Make(dtypes.Int64, j.inSpatial...)
	j.inPlaneSize = inPlaneShape.Size()
	j.inSpatialStrides = inPlaneShape.Strides()
	j.outPlaneSize = shapes.Make(dtypes.Int64, j.outSpatial...).Size()

	switch call.Mode {
	case pooling.ModeFixed:
		g, err := call.Geometry(inputShape)
		if err != nil {
			return nil, err
		}
		j.kernelVolume = call.KernelVolume()
		j.windows = make([][]window.Window, len(j.outSpatial))
		for dim, outDim := range j.outSpatial {
			j.windows[dim] = make([]window.Window, outDim)
			for ii := range outDim {
				j.windows[dim][ii] = g.Window(dim, ii, call.Kernel[dim], call.Strides[dim])
			}
		}
	case pooling.ModeAdaptive:
		j.windows, err = call.AdaptivePlan(inputShape)
		if err != nil {
			return nil, err
		}
	}

	if call.ReturnIndices {
		j.indices = tensors.FromShape(outputShape.WithDType(pooling.IndicesDType))
		err = tensors.MutableFlatData(j.indices, func(flat []int64) { j.indicesFlat = flat })
		if err != nil {
			return nil, err
		}
	}
	return j, nil
}

// addressing returns the flat index of the first element of the plane, and the step between consecutive spatial
// positions, for a tensor whose planes hold planeSize elements.
func (j *job) addressing(plane, planeSize int) (base, step int) {
	if !j.channelsLast {
		return plane * planeSize, 1
	}
	batchIdx, channelIdx := plane/j.channels, plane%j.channels
	return batchIdx*planeSize*j.channels + channelIdx, j.channels
}

// execPool executes the pooling for a Go numeric type.
func execPool[T PODNumericConstraints](j *job) error {
	var in, out []T
	if err := tensors.ConstFlatData(j.input, func(flat []T) { in = flat }); err != nil {
		return err
	}
	if err := tensors.MutableFlatData(j.output, func(flat []T) { out = flat }); err != nil {
		return err
	}
	runPlanes(j, in, out)
	return nil
}

// execPoolConverted returns a FuncForDispatcher for a type T not natively supported by Go, converting it
// to float32 and back.
func execPoolConverted[T float16.Float16 | bfloat16.BFloat16](
	toFloat32 func(T) float32, fromFloat32 func(float32) T) FuncForDispatcher {
	return func(j *job) error {
		var in32 []float32
		err := tensors.ConstFlatData(j.input, func(flat []T) {
			in32 = make([]float32, len(flat))
			for ii, v := range flat {
				in32[ii] = toFloat32(v)
			}
		})
		if err != nil {
			return err
		}
		out32 := make([]float32, j.output.Size())
		runPlanes(j, in32, out32)
		return tensors.MutableFlatData(j.output, func(flat []T) {
			for ii, v := range out32 {
				flat[ii] = fromFloat32(v)
			}
		})
	}
}

// runPlanes pools every plane, using the workers pool.
func runPlanes[T PODNumericConstraints](j *job, in, out []T) {
	j.pool.ParallelFor(j.numPlanes, func(plane int) {
		poolPlane(j, in, out, plane)
	})
}

// poolPlane pools one (batch, channel) plane.
func poolPlane[T PODNumericConstraints](j *job, in, out []T, plane int) {
	inBase, inStep := j.addressing(plane, j.inPlaneSize)
	outBase, outStep := j.addressing(plane, j.outPlaneSize)
	numDims := len(j.outSpatial)
	outPos := make([]int, numDims)
	lo := make([]int, numDims)
	hi := make([]int, numDims)
	pos := make([]int, numDims)
	isMax := j.call.Kind == pooling.KindMax
	isAdaptive := j.call.Mode == pooling.ModeAdaptive

	for outFlat := range j.outPlaneSize {
		validCount := 1
		for dim := range numDims {
			w := j.windows[dim][outPos[dim]].Clip(j.inSpatial[dim])
			lo[dim], hi[dim] = w.Start, w.End
			validCount *= w.Size()
		}
		outIdx := outBase + outFlat*outStep

		switch {
		case validCount == 0:
			// Window entirely in the padding (only possible with ceil mode).
			out[outIdx] = 0
			if j.indicesFlat != nil {
				j.indicesFlat[outIdx] = -1
			}

		case isMax:
			var best T
			bestIdx := -1
			forEachInBox(lo, hi, pos, j.inSpatialStrides, func(spatialIdx int) {
				v := in[inBase+spatialIdx*inStep]
				if bestIdx < 0 || v > best {
					best, bestIdx = v, spatialIdx
				}
			})
			out[outIdx] = best
			if j.indicesFlat != nil {
				j.indicesFlat[outIdx] = int64(bestIdx)
			}

		default:
			var sum float64
			forEachInBox(lo, hi, pos, j.inSpatialStrides, func(spatialIdx int) {
				sum += float64(in[inBase+spatialIdx*inStep])
			})
			divisor := float64(validCount)
			if !isAdaptive {
				divisor = j.divisor.Divisor(j.kernelVolume, validCount)
			}
			out[outIdx] = T(sum / divisor)
		}

		// Next output position.
		for dim := numDims - 1; dim >= 0; dim-- {
			outPos[dim]++
			if outPos[dim] < j.outSpatial[dim] {
				break
			}
			outPos[dim] = 0
		}
	}
}

// forEachInBox calls fn with the flat spatial index of every position in the box [lo, hi), in row-major order.
// The box must not be empty. pos is used as scratch space.
func forEachInBox(lo, hi, pos, strides []int, fn func(spatialIdx int)) {
	copy(pos, lo)
	numDims := len(pos)
	for {
		spatialIdx := 0
		for dim, p := range pos {
			spatialIdx += p * strides[dim]
		}
		fn(spatialIdx)
		dim := numDims - 1
		for ; dim >= 0; dim-- {
			pos[dim]++
			if pos[dim] < hi[dim] {
				break
			}
			pos[dim] = lo[dim]
		}
		if dim < 0 {
			return
		}
	}
}
