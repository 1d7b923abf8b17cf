// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package layout resolves the position of the batch, channels and spatial axes of a pooling input
// from its data format string ("NCHW", "NHWC", etc.).
//
// The batch axis is always the first one. The channels axis (aka. "depth" or "features") comes either
// right after the batch axis (ChannelsFirst) or after all spatial axes (ChannelsLast).
package layout

import (
	"github.com/gomlx/pooling/pkg/core/shapes"
	"github.com/gomlx/pooling/pkg/support/poolerr"
	"github.com/gomlx/pooling/pkg/support/xslices"
	"k8s.io/klog/v2"
)

// ChannelsAxisConfig indicates if a tensor has the channel axis coming last (last axis) or first
// (first axis after batch axis).
type ChannelsAxisConfig uint8

//go:generate go tool enumer -type=ChannelsAxisConfig -output=gen_channelsaxisconfig_enumer.go layout.go

const (
	ChannelsFirst ChannelsAxisConfig = iota
	ChannelsLast
)

// dataFormats indexed by number of spatial dimensions, and then by ChannelsAxisConfig.
var dataFormats = [][2]string{
	1: {"NCL", "NLC"},
	2: {"NCHW", "NHWC"},
	3: {"NCDHW", "NDHWC"},
}

// MaxSpatialDims is the largest number of spatial dimensions with a named data format.
const MaxSpatialDims = 3

// FromDataFormat returns the ChannelsAxisConfig for the given data format and number of spatial dimensions.
//
// Only the two canonical formats for the dimensionality are accepted ("NCL"/"NLC", "NCHW"/"NHWC" or
// "NCDHW"/"NDHWC"), matched exactly. Anything else returns an error wrapping poolerr.ErrInvalidArgument.
func FromDataFormat(format string, numSpatialDims int) (ChannelsAxisConfig, error) {
	if numSpatialDims < 1 || numSpatialDims > MaxSpatialDims {
		return ChannelsFirst, poolerr.InvalidArgumentf(
			"data_format %q: there are no data formats for %d spatial dimensions, only 1 to %d",
			format, numSpatialDims, MaxSpatialDims)
	}
	formats := dataFormats[numSpatialDims]
	switch format {
	case formats[ChannelsFirst]:
		return ChannelsFirst, nil
	case formats[ChannelsLast]:
		return ChannelsLast, nil
	}
	return ChannelsFirst, poolerr.InvalidArgumentf("data_format should be %q or %q for %dD pooling, got %q",
		formats[ChannelsFirst], formats[ChannelsLast], numSpatialDims, format)
}

// DataFormat returns the canonical data format string for the configuration. E.g.: "NHWC" for
// ChannelsLast with 2 spatial dimensions.
//
// It returns an empty string if numSpatialDims has no named data format.
func DataFormat(config ChannelsAxisConfig, numSpatialDims int) string {
	if numSpatialDims < 1 || numSpatialDims > MaxSpatialDims || !config.IsAChannelsAxisConfig() {
		return ""
	}
	return dataFormats[numSpatialDims][config]
}

// GetChannelsAxis for a tensor of the given rank and configuration. It assumes the
// leading axis is for the batch dimension. So it either returns 1 or `rank-1`.
func GetChannelsAxis(rank int, config ChannelsAxisConfig) int {
	switch config {
	case ChannelsFirst:
		return 1
	case ChannelsLast:
		return rank - 1
	default:
		klog.Errorf("GetChannelsAxis(rank=%d, %s): invalid ChannelsAxisConfig!?", rank, config)
		return -1
	}
}

// GetSpatialAxes for a tensor of the given rank and configuration. It assumes the
// leading axis is for the batch dimension.
//
// Example: if the tensor has shape `[batch_dim, height, width, channels]` (ChannelsLast), it will
// return `[]int{1, 2}`.
func GetSpatialAxes(rank int, config ChannelsAxisConfig) (spatialAxes []int) {
	numSpatialDims := rank - 2
	if numSpatialDims <= 0 {
		return
	}
	switch config {
	case ChannelsFirst:
		spatialAxes = xslices.Iota(2, numSpatialDims)
	case ChannelsLast:
		spatialAxes = xslices.Iota(1, numSpatialDims)
	default:
		klog.Errorf("GetSpatialAxes(rank=%d, %v): invalid ChannelsAxisConfig!?", rank, config)
	}
	return
}

// SpatialDimensions extracts the spatial extents of the given shape, skipping the batch and channels axes.
//
// Example: `[8, 3, 32, 24]` with ChannelsFirst returns `[32, 24]`; with ChannelsLast returns `[3, 32]`.
func SpatialDimensions(shape shapes.HasShape, config ChannelsAxisConfig) []int {
	s := shape.Shape()
	axes := GetSpatialAxes(s.Rank(), config)
	return xslices.Map(axes, func(axis int) int { return s.Dimensions[axis] })
}

// ComposeDimensions is the inverse of SpatialDimensions: it builds the full dimensions of a tensor with the given
// batch and channels sizes and spatial dimensions, laid out according to config.
func ComposeDimensions(config ChannelsAxisConfig, batchSize, channels int, spatialDims []int) []int {
	dims := make([]int, 0, len(spatialDims)+2)
	dims = append(dims, batchSize)
	if config == ChannelsFirst {
		dims = append(dims, channels)
		dims = append(dims, spatialDims...)
	} else {
		dims = append(dims, spatialDims...)
		dims = append(dims, channels)
	}
	return dims
}
