// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pooling_test

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pooling/pkg/core/shapes"
	"github.com/gomlx/pooling/pkg/core/tensors"
	"github.com/gomlx/pooling/pkg/core/window"
	"github.com/gomlx/pooling/pkg/engines/simplego"
	. "github.com/gomlx/pooling/pkg/pooling"
	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func iotaFloat32(n int) []float32 {
	values := make([]float32, n)
	for ii := range values {
		values[ii] = float32(ii)
	}
	return values
}

func TestBuilder1D(t *testing.T) {
	engine := must.M1(simplego.New(""))

	// Adaptive windows of 7 -> 3: [0, 3), [2, 5) and [4, 7).
	x := tensors.FromFlatDataAndDimensions(iotaFloat32(7), 1, 1, 7)
	result, err := AdaptiveAvgPool1D(x).OutputSize(3).Exec(engine)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 3}, result.Output.Shape().Dimensions)
	assert.Equal(t, []float32{1, 3, 5}, tensors.CopyFlatData[float32](result.Output))
	assert.Nil(t, result.Indices)

	x = tensors.FromFlatDataAndDimensions([]float32{3, 1, 4, 1, 5}, 1, 1, 5)
	result, err = MaxPool1D(x).Window(2).CeilMode(true).ReturnIndices(true).Exec(engine)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 3}, result.Output.Shape().Dimensions)
	assert.Equal(t, []float32{3, 4, 5}, tensors.CopyFlatData[float32](result.Output))
	require.NotNil(t, result.Indices)
	assert.Equal(t, []int{1, 1, 3}, result.Indices.Shape().Dimensions)
	assert.Equal(t, []int64{0, 2, 4}, tensors.CopyFlatData[int64](result.Indices))

	// Channels-last: channel 0 is [1, 2, 3, 4] and channel 1 is [10, 20, 30, 40].
	x = tensors.FromFlatDataAndDimensions([]float32{1, 10, 2, 20, 3, 30, 4, 40}, 1, 4, 2)
	result = MaxPool1D(x).DataFormat("NLC").Window(2).Done(engine)
	assert.Equal(t, []int{1, 2, 2}, result.Output.Shape().Dimensions)
	assert.Equal(t, []float32{2, 20, 4, 40}, tensors.CopyFlatData[float32](result.Output))

	result = AvgPool1D(x).DataFormat("NLC").Window(3).Strides(1).PadSame().Done(engine)
	assert.Equal(t, []int{1, 4, 2}, result.Output.Shape().Dimensions)
	assert.InDeltaSlice(t, []float32{1.5, 15, 2, 20, 3, 30, 3.5, 35},
		tensors.CopyFlatData[float32](result.Output), 1e-5)
}

func TestBuilder2D(t *testing.T) {
	engine := must.M1(simplego.New("sequential"))
	x := tensors.FromFlatDataAndDimensions(iotaFloat32(16), 1, 1, 4, 4)

	result := AvgPool2D(x).Window(2).Done(engine)
	assert.Equal(t, []float32{2.5, 4.5, 10.5, 12.5}, tensors.CopyFlatData[float32](result.Output))

	result = AvgPool2D(x).Window(3).Strides(2).PaddingPerDim([][2]int{{1, 1}, {1, 1}}).CountIncludePad(true).
		Done(engine)
	// Top-left window covers [0, 1] x [0, 1] of the input: (0+1+4+5)/9.
	assert.InDelta(t, 10.0/9.0, tensors.CopyFlatData[float32](result.Output)[0], 1e-5)

	result = AvgPool2D(x).Window(3).Strides(2).PaddingAny(1).DivisorOverride(4).Done(engine)
	assert.InDelta(t, 10.0/4.0, tensors.CopyFlatData[float32](result.Output)[0], 1e-5)

	result = AdaptiveMaxPool2D(x).OutputSizePerAxis(window.KeepInputDim, 1).ReturnIndices(true).Done(engine)
	assert.Equal(t, []int{1, 1, 4, 1}, result.Output.Shape().Dimensions)
	assert.Equal(t, []float32{3, 7, 11, 15}, tensors.CopyFlatData[float32](result.Output))
	assert.Equal(t, []int64{3, 7, 11, 15}, tensors.CopyFlatData[int64](result.Indices))
}

func TestBuilderOutputShape(t *testing.T) {
	for _, tc := range []struct {
		name    string
		builder *Builder
		want    []int
	}{
		{"max2d", MaxPool2D(shapes.Make(dtypes.Float32, 8, 3, 32, 32)).Window(2), []int{8, 3, 16, 16}},
		{"avg2d-nhwc-same", AvgPool2D(shapes.Make(dtypes.Float32, 8, 31, 31, 3)).DataFormat("NHWC").
			Window(3).Strides(2).PadSame(), []int{8, 16, 16, 3}},
		{"max3d-valid", MaxPool3D(shapes.Make(dtypes.Float32, 2, 4, 9, 9, 9)).Window(2).PadValid(), []int{2, 4, 4, 4, 4}},
		{"max1d-ceil", MaxPool1D(shapes.Make(dtypes.Float32, 2, 3, 7)).Window(2).CeilMode(true), []int{2, 3, 4}},
		{"avg1d-nlc", AvgPool1D(shapes.Make(dtypes.Float32, 2, 7, 3)).DataFormat("NLC").Window(3).Strides(1),
			[]int{2, 5, 3}},
		{"adaptive3d", AdaptiveAvgPool3D(shapes.Make(dtypes.Float32, 1, 2, 5, 6, 7)).OutputSize(2), []int{1, 2, 2, 2, 2}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			output, err := tc.builder.OutputShape()
			require.NoError(t, err)
			assert.Equal(t, tc.want, output.Dimensions)
			assert.Equal(t, dtypes.Float32, output.DType)
		})
	}
}

func TestBuilderErrors(t *testing.T) {
	engine := must.M1(simplego.New(""))
	x := tensors.FromFlatDataAndDimensions(iotaFloat32(16), 1, 1, 4, 4)

	_, err := MaxPool1D(x).Window(2).Plan()
	assert.ErrorIs(t, err, ErrShapeMismatch)

	_, err = MaxPool2D(x).Window(5).Plan()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = AvgPool2D(x).Window(2).DivisorOverride(0).Plan()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = MaxPool2D(x).Window(2).DataFormat("NHWC").ReturnIndices(true).Plan()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = MaxPool2D(x).Window(2).PaddingAny("[1, 2, 3]").Plan()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = MaxPool2D(shapes.Make(dtypes.Float32, 1, 1, 4, 4)).Window(2).Exec(engine)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	var nilTensor *tensors.Tensor
	_, err = MaxPool2D(nilTensor).Window(2).Plan()
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = MaxPool2D(nil).Window(2).Exec(engine)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = exceptions.TryCatch[error](func() { AdaptiveAvgPool2D(x).Done(engine) })
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// dropIndicesEngine wraps an engine and drops the indices of its results.
type dropIndicesEngine struct {
	Engine
}

func (e dropIndicesEngine) Execute(call *Call, x *tensors.Tensor) (*Result, error) {
	result, err := e.Engine.Execute(call, x)
	if err != nil {
		return nil, err
	}
	return &Result{Output: result.Output}, nil
}

func TestBuilderCheckResult(t *testing.T) {
	engine := dropIndicesEngine{Engine: must.M1(simplego.New(""))}
	x := tensors.FromFlatDataAndDimensions(iotaFloat32(16), 1, 1, 4, 4)
	result, err := MaxPool2D(x).Window(2).Exec(engine)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 2}, result.Output.Shape().Dimensions)

	_, err = MaxPool2D(x).Window(2).ReturnIndices(true).Exec(engine)
	assert.ErrorIs(t, err, ErrShapeMismatch)
}
