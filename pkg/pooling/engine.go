// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pooling

import "github.com/gomlx/pooling/pkg/core/tensors"

// Engine executes planned pooling calls.
//
// The input x has the rank of the call (an embedded 1D call takes the embedded 4D input, see Embed1DShape),
// and the result shapes are given by Call.OutputShape. Engines must be safe for concurrent use.
type Engine interface {
	// Name of the engine, for logging and error messages.
	Name() string

	// Execute the pooling described by call on x.
	Execute(call *Call, x *tensors.Tensor) (*Result, error)
}
