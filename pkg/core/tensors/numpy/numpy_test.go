// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package numpy

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/pooling/pkg/core/shapes"
	"github.com/gomlx/pooling/pkg/core/tensors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNpyRoundTrip(t *testing.T) {
	for _, x := range []*tensors.Tensor{
		tensors.FromFlatDataAndDimensions([]float32{1, 2, 3, 4, 5, 6}, 1, 2, 3),
		tensors.FromFlatDataAndDimensions([]int64{-1, 7, 3}, 3),
		tensors.FromFlatDataAndDimensions([]uint8{7}),
	} {
		var buf bytes.Buffer
		require.NoError(t, ToNpyWriter(x, &buf))
		require.Equal(t, "\x93NUMPY", buf.String()[:6])
		headerLen := int(binary.LittleEndian.Uint16(buf.Bytes()[8:10]))
		assert.Zero(t, (10+headerLen)%64, "header must be 64-bytes aligned")

		y, err := FromNpyReader(&buf)
		require.NoError(t, err)
		assert.True(t, x.Shape().Equal(y.Shape()), "got %s, wanted %s", y.Shape(), x.Shape())
		assert.Equal(t, x.FlatAny(), y.FlatAny())
	}

	_, err := FromNpyReader(bytes.NewReader([]byte("not a numpy file")))
	require.Error(t, err)
	err = ToNpyWriter(tensors.FromFlatDataAndDimensions([]bfloat16.BFloat16{bfloat16.FromFloat32(1)}, 1), &bytes.Buffer{})
	require.Error(t, err)
}

func TestFortranOrder(t *testing.T) {
	header := "{'descr': '<i4', 'fortran_order': True, 'shape': (2, 3), }"
	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	_ = binary.Write(&buf, binary.LittleEndian, uint16(len(header)))
	buf.WriteString(header)
	// Column-major [[1, 2, 3], [4, 5, 6]].
	for _, v := range []int32{1, 4, 2, 5, 3, 6} {
		_ = binary.Write(&buf, binary.LittleEndian, v)
	}
	x, err := FromNpyReader(&buf)
	require.NoError(t, err)
	assert.True(t, shapes.Make(dtypes.Int32, 2, 3).Equal(x.Shape()))
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6}, tensors.CopyFlatData[int32](x))
}

func TestParseHeader(t *testing.T) {
	descr, dims, fortranOrder, err := parseHeader("{'descr': '<f8', 'fortran_order': False, 'shape': (10,), }")
	require.NoError(t, err)
	assert.Equal(t, "<f8", descr)
	assert.Equal(t, []int{10}, dims)
	assert.False(t, fortranOrder)

	_, dims, _, err = parseHeader("{'descr': '|u1', 'fortran_order': False, 'shape': (), }")
	require.NoError(t, err)
	assert.Empty(t, dims)

	_, _, _, err = parseHeader("{'descr': '<f8', 'shape': (10,), }")
	require.Error(t, err)

	_, err = fromDescr(">f4")
	require.Error(t, err)
}

func TestNpz(t *testing.T) {
	output := tensors.FromFlatDataAndDimensions([]float32{3, 4, 5}, 1, 1, 3)
	indices := tensors.FromFlatDataAndDimensions([]int64{0, 2, 4}, 1, 1, 3)
	filePath := filepath.Join(t.TempDir(), "result.npz")
	require.NoError(t, ToNpzFile(map[string]*tensors.Tensor{"output": output, "indices": indices, "none": nil}, filePath))

	loaded, err := FromNpzFile(filePath)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, []float32{3, 4, 5}, tensors.CopyFlatData[float32](loaded["output"]))
	assert.Equal(t, []int64{0, 2, 4}, tensors.CopyFlatData[int64](loaded["indices"]))

	var buf bytes.Buffer
	require.NoError(t, ToNpzWriter(map[string]*tensors.Tensor{"output": output}, &buf))
	loaded, err = FromNpzReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 3}, loaded["output"].Shape().Dimensions)

	npyPath := filepath.Join(t.TempDir(), "output.npy")
	require.NoError(t, ToNpyFile(output, npyPath))
	x, err := FromNpyFile(npyPath)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4, 5}, tensors.CopyFlatData[float32](x))
}
