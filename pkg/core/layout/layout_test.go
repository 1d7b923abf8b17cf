// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package layout

import (
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pooling/pkg/core/shapes"
	"github.com/gomlx/pooling/pkg/support/poolerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromDataFormat(t *testing.T) {
	for _, tc := range []struct {
		format  string
		numDims int
		want    ChannelsAxisConfig
	}{
		{"NCL", 1, ChannelsFirst},
		{"NLC", 1, ChannelsLast},
		{"NCHW", 2, ChannelsFirst},
		{"NHWC", 2, ChannelsLast},
		{"NCDHW", 3, ChannelsFirst},
		{"NDHWC", 3, ChannelsLast},
	} {
		got, err := FromDataFormat(tc.format, tc.numDims)
		require.NoErrorf(t, err, "format %q", tc.format)
		assert.Equalf(t, tc.want, got, "format %q", tc.format)
		assert.Equal(t, tc.format, DataFormat(got, tc.numDims))
	}

	// Formats from another dimensionality, lower-case variants and unknown dims are rejected.
	for _, tc := range []struct {
		format  string
		numDims int
	}{
		{"NCHW", 1}, {"NCL", 2}, {"NCDHW", 2}, {"nchw", 2}, {"", 2}, {"NCHW", 4}, {"NCHW", 0},
	} {
		_, err := FromDataFormat(tc.format, tc.numDims)
		require.Errorf(t, err, "format %q with %d spatial dims", tc.format, tc.numDims)
		assert.True(t, poolerr.IsInvalidArgument(err))
	}

	assert.Equal(t, "", DataFormat(ChannelsLast, 4))
	assert.Equal(t, "", DataFormat(ChannelsAxisConfig(7), 2))
}

func TestAxes(t *testing.T) {
	assert.Equal(t, 1, GetChannelsAxis(4, ChannelsFirst))
	assert.Equal(t, 3, GetChannelsAxis(4, ChannelsLast))
	assert.Equal(t, []int{2, 3}, GetSpatialAxes(4, ChannelsFirst))
	assert.Equal(t, []int{1, 2}, GetSpatialAxes(4, ChannelsLast))
	assert.Empty(t, GetSpatialAxes(2, ChannelsLast))

	shape := shapes.Make(dtypes.Float32, 8, 3, 32, 24)
	assert.Equal(t, []int{32, 24}, SpatialDimensions(shape, ChannelsFirst))
	assert.Equal(t, []int{3, 32}, SpatialDimensions(shape, ChannelsLast))

	assert.Equal(t, []int{8, 3, 16, 12}, ComposeDimensions(ChannelsFirst, 8, 3, []int{16, 12}))
	assert.Equal(t, []int{8, 16, 12, 3}, ComposeDimensions(ChannelsLast, 8, 3, []int{16, 12}))
}

func TestEnumer(t *testing.T) {
	assert.Equal(t, "ChannelsLast", ChannelsLast.String())
	v, err := ChannelsAxisConfigString("channelsfirst")
	require.NoError(t, err)
	assert.Equal(t, ChannelsFirst, v)
}
