// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package padding normalizes the many ways users can express pooling paddings into one canonical Padding.
//
// There are five accepted notations, each one a variant of Raw:
//
//   - Mode("SAME") or Mode("VALID"), case-insensitive: padding is derived from the input size (SAME) or is zero (VALID).
//   - Scalar(p): the same padding p on both sides of every spatial dimension.
//   - PerDim{p0, p1, ...}: one symmetric padding per spatial dimension.
//   - PerDimFlat{before0, after0, before1, after1, ...}: one [before, after] pair per spatial dimension, flattened.
//   - PerAxisPairs{{0, 0}, {0, 0}, {before0, after0}, ...}: one pair per axis of the input, including the batch and
//     channels axes, which must be {0, 0}.
//
// Normalize converts any of them to a Padding, with an explicit Algorithm tag.
package padding

import (
	"fmt"
	"slices"

	"github.com/gomlx/pooling/pkg/core/layout"
	"github.com/gomlx/pooling/pkg/support/poolerr"
)

// Algorithm used to derive the paddings.
type Algorithm uint8

//go:generate go tool enumer -type=Algorithm -trimprefix=Algorithm -transform=upper -output=gen_algorithm_enumer.go padding.go

const (
	// AlgorithmExplicit uses the paddings given by the user.
	AlgorithmExplicit Algorithm = iota

	// AlgorithmSame pads so that the output size is ceil(input/stride). The actual paddings depend on the input
	// size, and are only known when the geometry is resolved (see package window).
	AlgorithmSame

	// AlgorithmValid uses no padding at all. Only floor rounding of the output size is allowed.
	AlgorithmValid
)

// Raw padding configuration, as given by the user. It is one of Mode, Scalar, PerDim, PerDimFlat or PerAxisPairs.
type Raw interface {
	fmt.Stringer
	isRaw()
}

// Mode is a padding given by name: "SAME" or "VALID" (case-insensitive).
type Mode string

// Scalar is the same padding for both sides of every spatial dimension.
type Scalar int

// PerDim holds one symmetric padding per spatial dimension.
type PerDim []int

// PerDimFlat holds one [before, after] pair per spatial dimension, flattened as [before0, after0, before1, after1, ...].
type PerDimFlat []int

// PerAxisPairs holds one [before, after] pair for every axis of the input, including batch and channels axes.
type PerAxisPairs [][2]int

func (Mode) isRaw()         {}
func (Scalar) isRaw()       {}
func (PerDim) isRaw()       {}
func (PerDimFlat) isRaw()   {}
func (PerAxisPairs) isRaw() {}

func (m Mode) String() string         { return fmt.Sprintf("Mode(%q)", string(m)) }
func (s Scalar) String() string       { return fmt.Sprintf("Scalar(%d)", int(s)) }
func (p PerDim) String() string       { return fmt.Sprintf("PerDim%v", []int(p)) }
func (p PerDimFlat) String() string   { return fmt.Sprintf("PerDimFlat%v", []int(p)) }
func (p PerAxisPairs) String() string { return fmt.Sprintf("PerAxisPairs%v", [][2]int(p)) }

// Padding is the canonical padding configuration.
//
// Values holds either one symmetric padding per spatial dimension (len(Values) == NumDims), or one [before, after]
// pair per spatial dimension flattened (len(Values) == 2*NumDims). If all pairs are symmetric they are always
// collapsed to the first form. Batch and channels axes are never included.
type Padding struct {
	Values    []int
	NumDims   int
	Algorithm Algorithm
}

// Zeros returns a Padding with no padding for numDims spatial dimensions.
func Zeros(numDims int, algorithm Algorithm) Padding {
	return Padding{Values: make([]int, numDims), NumDims: numDims, Algorithm: algorithm}
}

// FromPairs returns an explicit Padding from one [before, after] pair per spatial dimension, collapsed if symmetric.
func FromPairs(pairs [][2]int) Padding {
	flat := make([]int, 0, 2*len(pairs))
	for _, pair := range pairs {
		flat = append(flat, pair[0], pair[1])
	}
	return Padding{Values: collapse(flat, len(pairs)), NumDims: len(pairs), Algorithm: AlgorithmExplicit}
}

// IsSymmetric returns whether Values holds one symmetric value per spatial dimension.
func (p Padding) IsSymmetric() bool {
	return len(p.Values) == p.NumDims
}

// Pairs returns the [before, after] padding for each spatial dimension.
func (p Padding) Pairs() [][2]int {
	pairs := make([][2]int, p.NumDims)
	if p.IsSymmetric() {
		for ii, v := range p.Values {
			pairs[ii] = [2]int{v, v}
		}
		return pairs
	}
	for ii := range pairs {
		pairs[ii] = [2]int{p.Values[2*ii], p.Values[2*ii+1]}
	}
	return pairs
}

// Clone returns a deep copy of the Padding.
func (p Padding) Clone() Padding {
	p.Values = slices.Clone(p.Values)
	return p
}

// Equal returns whether both paddings are the same.
func (p Padding) Equal(p2 Padding) bool {
	return p.NumDims == p2.NumDims && p.Algorithm == p2.Algorithm && slices.Equal(p.Values, p2.Values)
}

// String implements fmt.Stringer.
func (p Padding) String() string {
	return fmt.Sprintf("%s%v", p.Algorithm, p.Values)
}

// Normalize converts a raw padding configuration to its canonical form, for a pooling over numDims spatial
// dimensions of an input laid out according to channels.
//
// ceilMode is only used to reject the VALID mode, which implies floor rounding of the output size.
//
// All errors wrap poolerr.ErrInvalidArgument. A raw padding that doesn't match any of the accepted notations is an
// error, there is no default.
func Normalize(raw Raw, numDims int, channels layout.ChannelsAxisConfig, ceilMode bool) (Padding, error) {
	if numDims < 1 {
		return Padding{}, poolerr.InvalidArgumentf("padding %v: number of spatial dimensions must be >= 1, got %d",
			raw, numDims)
	}
	switch p := raw.(type) {
	case Mode:
		return normalizeMode(p, numDims, ceilMode)

	case Scalar:
		if p < 0 {
			return Padding{}, poolerr.InvalidArgumentf("padding %v must be non-negative", p)
		}
		values := make([]int, numDims)
		for ii := range values {
			values[ii] = int(p)
		}
		return Padding{Values: values, NumDims: numDims, Algorithm: AlgorithmExplicit}, nil

	case PerDim:
		if len(p) != numDims {
			return Padding{}, poolerr.InvalidArgumentf("padding %v: expected %d values, one per spatial dimension",
				p, numDims)
		}
		if err := checkNonNegative(raw, p); err != nil {
			return Padding{}, err
		}
		return Padding{Values: slices.Clone(p), NumDims: numDims, Algorithm: AlgorithmExplicit}, nil

	case PerDimFlat:
		if len(p) != 2*numDims {
			return Padding{}, poolerr.InvalidArgumentf(
				"padding %v: expected %d values, a [before, after] pair per spatial dimension", p, 2*numDims)
		}
		if err := checkNonNegative(raw, p); err != nil {
			return Padding{}, err
		}
		return Padding{Values: collapse(p, numDims), NumDims: numDims, Algorithm: AlgorithmExplicit}, nil

	case PerAxisPairs:
		return normalizeAxisPairs(p, numDims, channels)

	case nil:
		return Padding{}, poolerr.InvalidArgumentf("padding not given (nil)")
	}
	return Padding{}, poolerr.InvalidArgumentf("invalid padding %#v (type %T)", raw, raw)
}

func normalizeMode(m Mode, numDims int, ceilMode bool) (Padding, error) {
	algorithm, err := AlgorithmString(string(m))
	if err != nil || algorithm == AlgorithmExplicit {
		return Padding{}, poolerr.InvalidArgumentf("unknown padding %q, it can only be \"SAME\" or \"VALID\"",
			string(m))
	}
	if algorithm == AlgorithmValid && ceilMode {
		return Padding{}, poolerr.InvalidArgumentf(
			"padding %q requires ceil_mode to be false, received ceil_mode=true", string(m))
	}
	return Zeros(numDims, algorithm), nil
}

func normalizeAxisPairs(p PerAxisPairs, numDims int, channels layout.ChannelsAxisConfig) (Padding, error) {
	rank := numDims + 2
	if len(p) != rank {
		return Padding{}, poolerr.InvalidArgumentf(
			"padding %v: expected %d [before, after] pairs, one per axis (batch, channels and %d spatial axes)",
			p, rank, numDims)
	}
	channelsAxis := layout.GetChannelsAxis(rank, channels)
	if channelsAxis < 0 {
		return Padding{}, poolerr.InvalidArgumentf("padding %v: invalid channels configuration %s", p, channels)
	}
	if p[0] != [2]int{0, 0} || p[channelsAxis] != [2]int{0, 0} {
		return Padding{}, poolerr.InvalidArgumentf(
			"non-zero padding %v in the batch (axis 0) or channels (axis %d) dimensions is not supported",
			p, channelsAxis)
	}
	pairs := make([][2]int, 0, numDims)
	for _, axis := range layout.GetSpatialAxes(rank, channels) {
		pair := p[axis]
		if pair[0] < 0 || pair[1] < 0 {
			return Padding{}, poolerr.InvalidArgumentf("padding %v: values must be non-negative, got %v at axis %d",
				p, pair, axis)
		}
		pairs = append(pairs, pair)
	}
	return FromPairs(pairs), nil
}

func checkNonNegative(raw Raw, values []int) error {
	for _, v := range values {
		if v < 0 {
			return poolerr.InvalidArgumentf("padding %v: values must be non-negative", raw)
		}
	}
	return nil
}

// collapse a flat list of [before, after] pairs to one value per dimension, if all pairs are symmetric.
// It always returns a new slice.
func collapse(flat []int, numDims int) []int {
	for dim := range numDims {
		if flat[2*dim] != flat[2*dim+1] {
			return slices.Clone(flat)
		}
	}
	values := make([]int, numDims)
	for dim := range values {
		values[dim] = flat[2*dim]
	}
	return values
}
