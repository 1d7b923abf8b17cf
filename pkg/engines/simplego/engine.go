// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package simplego implements a simple, and not very fast, but very portable pooling engine: it executes
// planned pooling.Call on host tensors, in pure Go.
//
// It processes the (batch, channels) planes of the input in parallel, and supports all float dtypes
// (Float16 and BFloat16 are computed in float32) for average and max pooling, and integer dtypes for max pooling.
package simplego

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/gomlx/pooling/internal/workerspool"
	"github.com/gomlx/pooling/pkg/core/tensors"
	"github.com/gomlx/pooling/pkg/pooling"
	"github.com/gomlx/pooling/pkg/support/poolerr"
	"github.com/google/uuid"
	"k8s.io/klog/v2"
)

// EngineName is the name of this engine.
const EngineName = "simplego"

// GOMLX_POOLING_ENGINE is the environment variable with the default engine configuration used by NewFromEnv.
//
// See New for the format of the configuration.
//
//nolint:revive,stylecheck // Name of the environment variable.
const GOMLX_POOLING_ENGINE = "GOMLX_POOLING_ENGINE"

// DefaultConfig is used by NewFromEnv if GOMLX_POOLING_ENGINE is not set.
var DefaultConfig string

// Engine implements pooling.Engine.
type Engine struct {
	config string
	pool   *workerspool.Pool
}

// Compile-time check that simplego.Engine implements pooling.Engine.
var _ pooling.Engine = &Engine{}

// New constructs a new SimpleGo Engine.
//
// The config is a comma-separated list of options:
//
//   - "parallelism=N": soft limit on the number of planes processed in parallel. 0 disables parallelism and
//     -1 makes it unlimited. The default is runtime.NumCPU().
//   - "sequential": same as "parallelism=0".
//
// An empty config uses the defaults.
func New(config string) (*Engine, error) {
	e := &Engine{
		config: config,
		pool:   workerspool.New(),
	}
	for _, option := range strings.Split(config, ",") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		key, value, hasValue := strings.Cut(option, "=")
		switch key {
		case "sequential":
			if hasValue {
				return nil, poolerr.InvalidArgumentf("%s engine option %q doesn't take a value", EngineName, option)
			}
			e.pool.SetMaxParallelism(0)
		case "parallelism":
			parallelism, err := strconv.Atoi(value)
			if !hasValue || err != nil || parallelism < -1 {
				return nil, poolerr.InvalidArgumentf("%s engine option %q: parallelism must be an integer >= -1",
					EngineName, option)
			}
			e.pool.SetMaxParallelism(parallelism)
		default:
			return nil, poolerr.InvalidArgumentf("unknown %s engine option %q in configuration %q",
				EngineName, option, config)
		}
	}
	return e, nil
}

// NewFromEnv returns a new Engine configured with the environment variable GOMLX_POOLING_ENGINE, if set, or
// otherwise DefaultConfig.
func NewFromEnv() (*Engine, error) {
	config, found := os.LookupEnv(GOMLX_POOLING_ENGINE)
	if !found {
		config = DefaultConfig
	}
	return New(config)
}

// Name implements pooling.Engine.
func (e *Engine) Name() string { return EngineName }

// String returns the name and the configuration of the engine.
func (e *Engine) String() string {
	parallelism := e.pool.MaxParallelism()
	switch {
	case parallelism == 0:
		return fmt.Sprintf("%s(sequential)", EngineName)
	case parallelism < 0:
		return fmt.Sprintf("%s(parallelism=unlimited)", EngineName)
	}
	return fmt.Sprintf("%s(parallelism=%d)", EngineName, parallelism)
}

// Parallelism returns the configured soft limit of parallelism: 0 for sequential, -1 for unlimited.
func (e *Engine) Parallelism() int {
	return e.pool.MaxParallelism()
}

// Execute implements pooling.Engine.
func (e *Engine) Execute(call *pooling.Call, x *tensors.Tensor) (*pooling.Result, error) {
	if call == nil || x == nil {
		return nil, poolerr.InvalidArgumentf("%s.Execute() requires a call and an input", EngineName)
	}
	dispatcher := dispatchAvg
	if call.Kind == pooling.KindMax {
		dispatcher = dispatchMax
	}
	if !dispatcher.IsSupported(x.DType()) {
		return nil, poolerr.InvalidArgumentf("%s: %s pooling doesn't support dtype %s (input shape %s)",
			EngineName, call.Kind, x.DType(), x.Shape())
	}
	j, err := newJob(call, x, e.pool)
	if err != nil {
		return nil, err
	}
	callID := uuid.New()
	if klog.V(2).Enabled() {
		klog.Infof("%s[%s]: %s on %s -> %s, %d planes, GOMAXPROCS=%d",
			EngineName, callID, call, x.Shape(), j.output.Shape(), j.numPlanes, runtime.GOMAXPROCS(0))
	}
	if err = dispatcher.Dispatch(x.DType(), j); err != nil {
		return nil, err
	}
	klog.V(2).Infof("%s[%s]: done", EngineName, callID)
	result := &pooling.Result{Output: j.output}
	if call.ReturnIndices {
		result.Indices = j.indices
	}
	return result, nil
}
