// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package poolerr defines the two kinds of errors reported by the pooling planner.
//
// Errors are created with github.com/pkg/errors, so they carry a stack trace and a message naming the
// offending parameter, while still matching the sentinel with errors.Is.
package poolerr

import (
	"github.com/pkg/errors"
)

var (
	// ErrInvalidArgument is returned for malformed kernel/stride/padding, disallowed padding modes,
	// non-zero batch/channel padding, layout incompatibilities, invalid divisor overrides and
	// non-positive output dimensions.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrShapeMismatch is returned when the input rank doesn't match the pooling dimensionality.
	ErrShapeMismatch = errors.New("shape mismatch")
)

// InvalidArgumentf returns an error wrapping ErrInvalidArgument with the formatted message.
func InvalidArgumentf(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// ShapeMismatchf returns an error wrapping ErrShapeMismatch with the formatted message.
func ShapeMismatchf(format string, args ...any) error {
	return errors.Wrapf(ErrShapeMismatch, format, args...)
}

// IsInvalidArgument reports whether err (or anything it wraps) is ErrInvalidArgument.
func IsInvalidArgument(err error) bool { return errors.Is(err, ErrInvalidArgument) }

// IsShapeMismatch reports whether err (or anything it wraps) is ErrShapeMismatch.
func IsShapeMismatch(err error) bool { return errors.Is(err, ErrShapeMismatch) }
