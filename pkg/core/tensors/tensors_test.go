// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tensors

import (
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pooling/pkg/core/shapes"
	"github.com/stretchr/testify/require"
)

func TestTensor(t *testing.T) {
	data := []float32{1, 2, 3, 4, 5, 6}
	x := FromFlatDataAndDimensions(data, 1, 2, 3)
	require.Equal(t, dtypes.Float32, x.DType())
	require.Equal(t, 3, x.Rank())
	require.Equal(t, 6, x.Size())
	data[0] = 100
	require.Equal(t, []float32{1, 2, 3, 4, 5, 6}, CopyFlatData[float32](x), "data must be copied")

	y, err := x.Reshape(1, 2, 1, 3)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 1, 3}, y.Shape().Dimensions)
	require.NoError(t, MutableFlatData(y, func(flat []float32) { flat[5] = -1 }))
	require.Equal(t, float32(-1), CopyFlatData[float32](x)[5], "Reshape shares data")

	_, err = x.Reshape(4, 2)
	require.Error(t, err)

	require.Error(t, ConstFlatData(x, func([]float64) {}))

	z := FromShape(shapes.Make(dtypes.Int64, 2, 2))
	require.Equal(t, []int64{0, 0, 0, 0}, CopyFlatData[int64](z))

	require.Error(t, exceptions.TryCatch[error](func() { FromFlatDataAndDimensions([]float64{1, 2}, 3) }))
}

func TestBytes(t *testing.T) {
	x := FromFlatDataAndDimensions([]int16{1, 2}, 2)
	var numBytes int
	require.NoError(t, x.ConstBytes(func(data []byte) { numBytes = len(data) }))
	require.Equal(t, 4, numBytes)

	y := FromShape(x.Shape())
	require.NoError(t, x.ConstBytes(func(src []byte) {
		require.NoError(t, y.MutableBytes(func(dst []byte) { copy(dst, src) }))
	}))
	require.Equal(t, []int16{1, 2}, CopyFlatData[int16](y))
}
