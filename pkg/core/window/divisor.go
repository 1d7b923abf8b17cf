// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package window

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gomlx/pooling/pkg/support/poolerr"
)

// DivisorPolicy defines what the sum of a fixed-size window is divided by in average pooling.
//
// Adaptive average pooling doesn't use it: it always divides by the number of elements in the window.
type DivisorPolicy struct {
	// CountIncludePad divides by the full kernel volume, including padding positions. Otherwise only the input
	// positions inside the window are counted.
	CountIncludePad bool

	// Override, if > 0, is used as the divisor for every window. 0 means not set.
	Override float64
}

// Divisor to use for a window with kernelVolume positions, validCount of which are input positions (not padding).
func (p DivisorPolicy) Divisor(kernelVolume, validCount int) float64 {
	switch {
	case p.Override > 0:
		return p.Override
	case p.CountIncludePad:
		return float64(kernelVolume)
	default:
		return float64(validCount)
	}
}

// Exclusive returns whether padding positions are excluded from the count.
func (p DivisorPolicy) Exclusive() bool { return !p.CountIncludePad }

// String implements fmt.Stringer.
func (p DivisorPolicy) String() string {
	if p.Override > 0 {
		return fmt.Sprintf("override(%g)", p.Override)
	}
	if p.CountIncludePad {
		return "kernel_volume"
	}
	return "valid_count"
}

// ValidateDivisorOverride checks that a given divisor override is a finite positive number.
func ValidateDivisorOverride(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return poolerr.InvalidArgumentf("divisor_override must be a number, got %v", v)
	}
	if v <= 0 {
		return poolerr.InvalidArgumentf("divisor_override must be positive, got %v", v)
	}
	return nil
}

// ParseDivisorOverride parses a textual divisor override. An empty text means not set, and returns 0.
func ParseDivisorOverride(text string) (float64, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, poolerr.InvalidArgumentf("divisor_override must be a number, got %q", text)
	}
	if err = ValidateDivisorOverride(v); err != nil {
		return 0, err
	}
	return v, nil
}

// ValidCount returns the number of input positions (excluding padding) in the window of output position
// outputIndex along one spatial dimension.
func ValidCount(outputIndex, kernel, stride, padBefore, inputDim int) int {
	return FixedWindow(outputIndex, kernel, stride, padBefore).Clip(inputDim).Size()
}
