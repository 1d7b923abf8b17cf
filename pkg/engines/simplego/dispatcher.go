// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package simplego

import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/pooling/pkg/support/poolerr"
	"github.com/x448/float16"
)

// FuncForDispatcher is the type of functions that the DTypeDispatcher can handle.
type FuncForDispatcher func(j *job) error

// MaxDTypes is the upper limit (exclusive) of the dtypes that can be registered.
const MaxDTypes = 32

// DTypeDispatcher calls the function registered for the dtype of the pooling input.
type DTypeDispatcher struct {
	Name  string
	fnMap [MaxDTypes]FuncForDispatcher
}

// NewDTypeDispatcher creates a new dispatcher for a class of functions.
func NewDTypeDispatcher(name string) *DTypeDispatcher {
	return &DTypeDispatcher{
		Name: name,
	}
}

// Dispatch calls the function that matches the dtype.
func (d *DTypeDispatcher) Dispatch(dtype dtypes.DType, j *job) error {
	if dtype >= MaxDTypes || d.fnMap[dtype] == nil {
		return poolerr.InvalidArgumentf("dtype %s not supported by %s", dtype, d.Name)
	}
	return d.fnMap[dtype](j)
}

// Register a function to handle a specific dtype.
// This overwrites any previous setting for the same dtype.
func (d *DTypeDispatcher) Register(dtype dtypes.DType, fn FuncForDispatcher) {
	if dtype >= MaxDTypes {
		panic(poolerr.InvalidArgumentf("dtype %s can't be registered in %s", dtype, d.Name))
	}
	d.fnMap[dtype] = fn
}

// IsSupported returns whether there is a function registered for the dtype.
func (d *DTypeDispatcher) IsSupported(dtype dtypes.DType) bool {
	return dtype < MaxDTypes && d.fnMap[dtype] != nil
}

// PODNumericConstraints are used for generics for the Golang pod (plain-old-data) types.
// Float16 and BFloat16 are not included because they are not natively supported by Go: they are converted
// to float32.
type PODNumericConstraints interface {
	int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 | float32 | float64
}

var (
	// dispatchMax handles max pooling, for all numeric dtypes.
	dispatchMax = NewDTypeDispatcher("MaxPool")

	// dispatchAvg handles average pooling, only for float dtypes.
	dispatchAvg = NewDTypeDispatcher("AvgPool")
)

func init() {
	dispatchMax.Register(dtypes.Int8, execPool[int8])
	dispatchMax.Register(dtypes.Int16, execPool[int16])
	dispatchMax.Register(dtypes.Int32, execPool[int32])
	dispatchMax.Register(dtypes.Int64, execPool[int64])
	dispatchMax.Register(dtypes.Uint8, execPool[uint8])
	dispatchMax.Register(dtypes.Uint16, execPool[uint16])
	dispatchMax.Register(dtypes.Uint32, execPool[uint32])
	dispatchMax.Register(dtypes.Uint64, execPool[uint64])
	for _, dispatcher := range []*DTypeDispatcher{dispatchMax, dispatchAvg} {
		dispatcher.Register(dtypes.Float32, execPool[float32])
		dispatcher.Register(dtypes.Float64, execPool[float64])
		dispatcher.Register(dtypes.Float16, execPoolConverted(float16.Float16.Float32, float16.Fromfloat32))
		dispatcher.Register(dtypes.BFloat16, execPoolConverted(bfloat16.BFloat16.Float32, bfloat16.FromFloat32))
	}
}
