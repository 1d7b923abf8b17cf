// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pooling

import "github.com/gomlx/pooling/pkg/support/poolerr"

var (
	// ErrInvalidArgument is wrapped by all errors due to invalid pooling parameters. See poolerr.ErrInvalidArgument.
	ErrInvalidArgument = poolerr.ErrInvalidArgument

	// ErrShapeMismatch is wrapped by errors due to an input of the wrong rank. See poolerr.ErrShapeMismatch.
	ErrShapeMismatch = poolerr.ErrShapeMismatch
)

// InvalidArgumentf is an alias to poolerr.InvalidArgumentf.
func InvalidArgumentf(format string, args ...any) error {
	return poolerr.InvalidArgumentf(format, args...)
}

// ShapeMismatchf is an alias to poolerr.ShapeMismatchf.
func ShapeMismatchf(format string, args ...any) error {
	return poolerr.ShapeMismatchf(format, args...)
}
