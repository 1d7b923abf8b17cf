// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tensors implement a `Tensor`, a host-memory multidimensional array used as input and
// output of pooling execution engines.
//
// A Tensor is defined by its shape (a data type and its axes' dimensions) and a flat, row-major,
// Go slice holding its content. There are two ways to construct one:
//
//   - FromShape(shape shapes.Shape): creates a tensor with the given shape, and zero values.
//
//   - FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int): creates a Tensor with the
//     given dimensions and the flattened values copied from data. Example:
//
//     t := FromFlatDataAndDimensions([]float32{1, 2, 3, 4}, 1, 1, 4) // Tensor shaped [N=1, C=1, L=4].
package tensors

import (
	"fmt"
	"reflect"
	"slices"
	"unsafe"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pooling/pkg/core/shapes"
	"github.com/pkg/errors"
)

// Tensor is a multidimensional array stored in host memory.
type Tensor struct {
	shape shapes.Shape

	// flat holds the array with actual data, a slice of the Go type for the dtype of shape.
	flat any
}

// FromShape returns a Tensor with the given shape, with the data initialized with zeros.
//
// It panics if you provide an invalid shape.
func FromShape(shape shapes.Shape) *Tensor {
	if !shape.Ok() {
		exceptions.Panicf("tensors.FromShape(%s): invalid shape", shape)
	}
	size := shape.Size()
	flatV := reflect.MakeSlice(reflect.SliceOf(shape.DType.GoType()), size, size)
	return &Tensor{shape: shape.Clone(), flat: flatV.Interface()}
}

// FromFlatDataAndDimensions creates a tensor with the given dimensions, filled with the flattened values given in `data`.
// The data is copied to the Tensor.
// The `DType` is inferred from the `data` type.
//
// It panics if the size of data is wrong for the shape.
func FromFlatDataAndDimensions[T dtypes.Supported](data []T, dimensions ...int) *Tensor {
	shape := shapes.Make(dtypes.FromGenericsType[T](), dimensions...)
	if len(data) != shape.Size() {
		exceptions.Panicf("FromFlatDataAndDimensions(%s): data size is %d, but dimensions size is %d",
			shape, len(data), shape.Size())
	}
	return &Tensor{shape: shape, flat: slices.Clone(data)}
}

// Shape of the tensor. It implements shapes.HasShape.
func (t *Tensor) Shape() shapes.Shape { return t.shape }

// DType of the tensor elements.
func (t *Tensor) DType() dtypes.DType { return t.shape.DType }

// Rank of the tensor.
func (t *Tensor) Rank() int { return t.shape.Rank() }

// Size is the number of elements of the tensor.
func (t *Tensor) Size() int { return t.shape.Size() }

// FlatAny returns the underlying flat slice (not a copy) as an `any`.
func (t *Tensor) FlatAny() any { return t.flat }

// Reshape returns a new Tensor with the given dimensions sharing the same underlying data.
// The total size must be preserved.
func (t *Tensor) Reshape(dimensions ...int) (*Tensor, error) {
	newShape := shapes.Shape{DType: t.shape.DType, Dimensions: slices.Clone(dimensions)}
	if newShape.Size() != t.shape.Size() {
		return nil, errors.Errorf("Tensor.Reshape(%v): size %d doesn't match tensor shape %s",
			dimensions, newShape.Size(), t.shape)
	}
	for _, dim := range dimensions {
		if dim <= 0 {
			return nil, errors.Errorf("Tensor.Reshape(%v): dimensions must be > 0", dimensions)
		}
	}
	return &Tensor{shape: newShape, flat: t.flat}, nil
}

// String pretty-prints the tensor shape and, if small, its flat content.
func (t *Tensor) String() string {
	if t.Size() > 32 {
		return fmt.Sprintf("%s: (%d elements)", t.shape, t.Size())
	}
	return fmt.Sprintf("%s: %v", t.shape, t.flat)
}

// ConstFlatData calls accessFn with the flattened data as a slice of the Go type corresponding to the DType type.
//
// The slice is the actual Tensor data (not a copy), it should not be changed.
func ConstFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) error {
	flat, ok := t.flat.([]T)
	if !ok {
		var v T
		return errors.Errorf("ConstFlatData[%T] is incompatible with Tensor's dtype %s -- expected dtype %s",
			v, t.shape.DType, dtypes.FromGenericsType[T]())
	}
	accessFn(flat)
	return nil
}

// MutableFlatData calls accessFn with the flattened data as a slice of the Go type corresponding to the DType type.
// accessFn may change the contents of the slice.
func MutableFlatData[T dtypes.Supported](t *Tensor, accessFn func(flat []T)) error {
	return ConstFlatData(t, accessFn)
}

// CopyFlatData returns a copy of the flat data of the Tensor.
//
// It panics if T doesn't match the tensor dtype.
func CopyFlatData[T dtypes.Supported](t *Tensor) []T {
	var out []T
	err := ConstFlatData(t, func(flat []T) { out = slices.Clone(flat) })
	if err != nil {
		panic(err)
	}
	return out
}

// ConstBytes calls accessFn with the raw bytes of the tensor data, in host byte order.
//
// The slice is the actual Tensor data (not a copy), it should not be changed.
func (t *Tensor) ConstBytes(accessFn func(data []byte)) error {
	return t.MutableBytes(accessFn)
}

// MutableBytes calls accessFn with the raw bytes of the tensor data, in host byte order.
// accessFn may change the contents of the slice.
func (t *Tensor) MutableBytes(accessFn func(data []byte)) error {
	flatV := reflect.ValueOf(t.flat)
	if flatV.Kind() != reflect.Slice {
		return errors.Errorf("tensor %s has no flat data", t.shape)
	}
	numBytes := flatV.Len() * int(t.shape.DType.Memory())
	if numBytes == 0 {
		accessFn(nil)
		return nil
	}
	accessFn(unsafe.Slice((*byte)(flatV.UnsafePointer()), numBytes))
	return nil
}
