// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// poolplan plans a pooling from its command-line description and prints the resolved parameters, the output
// shape and the windows of each spatial dimension. Optionally it executes the pooling on a random input, or
// sweeps input/kernel/stride combinations checking the window geometry invariants.
//
// Example:
//
//	poolplan -dims=2 -kind=avg -input=8,3,32,31 -kernel=3 -stride=2 -padding=same -windows
//	poolplan -dims=1 -kind=max -adaptive -input=1,1,7 -output_size=3 -run
//	poolplan -dims=2 -kind=max -input=1,1,4,4 -kernel=2 -indices -run -save=~/pool.npz
//	poolplan -sweep=64
package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/pooling/pkg/core/layout"
	"github.com/gomlx/pooling/pkg/core/padding"
	"github.com/gomlx/pooling/pkg/core/shapes"
	"github.com/gomlx/pooling/pkg/core/tensors"
	"github.com/gomlx/pooling/pkg/core/tensors/numpy"
	"github.com/gomlx/pooling/pkg/core/window"
	"github.com/gomlx/pooling/pkg/engines/simplego"
	"github.com/gomlx/pooling/pkg/pooling"
	"github.com/gomlx/pooling/pkg/support/fsutil"
	"github.com/gomlx/pooling/pkg/support/xslices"
	"github.com/janpfeifer/must"
	"github.com/muesli/termenv"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagDims     = flag.Int("dims", 2, "Number of spatial dimensions of the pooling: 1, 2 or 3.")
	flagKind     = flag.String("kind", "max", fmt.Sprintf("Kind of pooling, one of %v.", pooling.KindStrings()))
	flagAdaptive = flag.Bool("adaptive", false, "Adaptive pooling: windows are derived from -output_size.")
	flagInput    = xslices.Flag("input", []int{1, 1, 8, 8}, "Comma-separated dimensions of the input, "+
		"including the batch and channels axes.", strconv.Atoi)
	flagKernel = xslices.Flag("kernel", nil, "Comma-separated kernel size: one value for all spatial "+
		"dimensions, or one per spatial dimension.", strconv.Atoi)
	flagStride = xslices.Flag("stride", nil, "Comma-separated strides, same format as -kernel. "+
		"Defaults to the kernel size.", strconv.Atoi)
	flagOutputSize = xslices.Flag("output_size", nil, "Comma-separated output size of adaptive pooling, "+
		"same format as -kernel. Use -1 to keep the input dimension.", strconv.Atoi)
	flagPadding = flag.String("padding", "", "Padding: \"same\", \"valid\", a single value, one value per "+
		"spatial dimension, a [before, after] pair per spatial dimension (flat), or a \"[before,after]\" "+
		"pair per input axis.")
	flagFormat          = flag.String("format", "", "Data format, e.g. \"NCHW\" or \"NHWC\". Defaults to channels-first.")
	flagCeil            = flag.Bool("ceil", false, "Use ceil instead of floor to compute the output size.")
	flagCountIncludePad = flag.Bool("count_include_pad", false, "Average pooling divides by the full kernel "+
		"volume, including padding positions.")
	flagDivisor = flag.String("divisor", "", "If set, average pooling divides every window by this value.")
	flagIndices = flag.Bool("indices", false, "Max pooling also returns the indices of the max values.")
	flagWindows = flag.Bool("windows", false, "List the windows of each spatial dimension.")
	flagRun     = flag.Bool("run", false, fmt.Sprintf("Execute the pooling on a random Float32 input (or the one "+
		"given by -load), with the engine configured by $%s.", simplego.GOMLX_POOLING_ENGINE))
	flagLoad  = flag.String("load", "", "Load the input from a .npy file, instead of using -input. Implies -run.")
	flagSave  = flag.String("save", "", "Save the input, output and indices of -run to a .npz file.")
	flagSweep = flag.Int("sweep", 0, "If > 0, check the window geometry invariants for all input dimensions, "+
		"kernels and strides up to this value, instead of planning a pooling.")
	flagNoColor = flag.Bool("nocolor", false, "Disable colors in the output.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if *flagNoColor {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
	if *flagSweep > 0 {
		if !sweep(*flagSweep) {
			os.Exit(1)
		}
		return
	}

	params, err := paramsFromFlags()
	if err != nil {
		klog.Errorf("Invalid flags: %+v", err)
		os.Exit(1)
	}
	kind, err := pooling.KindString(*flagKind)
	if err != nil {
		klog.Errorf("Invalid -kind: %+v", err)
		os.Exit(1)
	}
	var x *tensors.Tensor
	var inputShape shapes.Shape
	if *flagLoad != "" {
		x, err = loadInput(*flagLoad)
		if err != nil {
			klog.Errorf("Failed to load input: %+v", err)
			os.Exit(1)
		}
		inputShape = x.Shape()
	} else {
		inputShape = shapes.Make(dtypes.Float32, *flagInput...)
	}
	b := newBuilder(inputShape, kind, modeFromFlags(), params)
	call, err := b.Plan()
	if err != nil {
		klog.Errorf("Failed to plan pooling: %+v", err)
		os.Exit(1)
	}
	outputShape := must.M1(b.OutputShape())
	reportPlan(call, inputShape, outputShape)
	if *flagWindows {
		reportWindows(call, inputShape)
	}
	if *flagRun || x != nil {
		if x == nil {
			x = randomInput(inputShape)
		}
		run(x, kind, params)
	}
}

// paramsFromFlags converts the flags to pooling.Params.
func paramsFromFlags() (params pooling.Params, err error) {
	params = pooling.Params{
		NumSpatialDims:  *flagDims,
		DataFormat:      *flagFormat,
		Kernel:          *flagKernel,
		Strides:         *flagStride,
		CeilMode:        *flagCeil,
		CountIncludePad: *flagCountIncludePad,
		OutputSize:      *flagOutputSize,
	}
	if *flagPadding != "" {
		params.Padding, err = padding.Parse(*flagPadding, *flagDims)
		if err != nil {
			return
		}
	}
	params.DivisorOverride, err = window.ParseDivisorOverride(*flagDivisor)
	return
}

// newBuilder returns the pooling.Builder configured with params, for x.
func newBuilder(x shapes.HasShape, kind pooling.Kind, mode pooling.Mode, params pooling.Params) *pooling.Builder {
	var b *pooling.Builder
	switch {
	case kind == pooling.KindMax && mode == pooling.ModeFixed:
		b = pooling.MaxPool(x, params.NumSpatialDims)
	case kind == pooling.KindAvg && mode == pooling.ModeFixed:
		b = pooling.AvgPool(x, params.NumSpatialDims)
	case kind == pooling.KindMax:
		b = pooling.AdaptiveMaxPool(x, params.NumSpatialDims)
	default:
		b = pooling.AdaptiveAvgPool(x, params.NumSpatialDims)
	}
	if params.DataFormat != "" {
		b.DataFormat(params.DataFormat)
	}
	if len(params.Kernel) > 0 {
		b.WindowPerAxis(params.Kernel...)
	}
	if len(params.Strides) > 0 {
		b.StridePerAxis(params.Strides...)
	}
	if params.Padding != nil {
		b.Padding(params.Padding)
	}
	if params.CeilMode {
		b.CeilMode(true)
	}
	if params.CountIncludePad {
		b.CountIncludePad(true)
	}
	if params.DivisorOverride != 0 {
		b.DivisorOverride(params.DivisorOverride)
	}
	if len(params.OutputSize) > 0 {
		b.OutputSizePerAxis(params.OutputSize...)
	}
	return b.ReturnIndices(*flagIndices)
}

func reportPlan(call *pooling.Call, inputShape, outputShape shapes.Shape) {
	fmt.Println(titleStyle.Render("Plan"))
	fmt.Println(planReport(call, inputShape, outputShape).Render())
}

// planReport builds the key/value table describing the planned call.
func planReport(call *pooling.Call, inputShape, outputShape shapes.Shape) *lgtable.Table {
	table := newPlainTable(false, lipgloss.Right, lipgloss.Left)
	table.Row("call", call.String())
	table.Row("data format", call.DataFormat)
	if call.Embedded1D {
		table.Row("embedded input", pooling.Embed1DShape(inputShape, call.ChannelsAxis).String())
	}
	if call.Mode == pooling.ModeFixed {
		table.Row("kernel", fmt.Sprintf("%v", call.Kernel))
		table.Row("strides", fmt.Sprintf("%v", call.Strides))
		table.Row("padding", call.Padding.String())
		table.Row("padding pairs", fmt.Sprintf("%v", call.Padding.Pairs()))
		table.Row("ceil mode", strconv.FormatBool(call.CeilMode))
		if call.Kind == pooling.KindAvg {
			table.Row("divisor", call.Divisor().String())
		}
	} else {
		table.Row("output size", fmt.Sprintf("%v", call.OutputSizes))
	}
	table.Row("input", inputShape.String())
	table.Row("output", outputShape.String())
	table.Row("output elements", humanize.Comma(int64(outputShape.Size())))
	table.Row("output bytes", humanize.Bytes(uint64(outputShape.Memory())))
	if call.ReturnIndices {
		table.Row("indices", outputShape.WithDType(pooling.IndicesDType).String())
	}
	return table
}

// reportWindows prints the windows of each spatial dimension, marking in red the ones that only cover padding.
func reportWindows(call *pooling.Call, inputShape shapes.Shape) {
	wt, err := windowsReport(call, inputShape)
	if err != nil {
		klog.Errorf("Failed to list windows: %+v", err)
		os.Exit(1)
	}
	fmt.Println(titleStyle.Render(fmt.Sprintf("Windows (%d padding-only)", wt.NumPaddingOnly())))
	fmt.Println(wt.Render())
}

// windowsReport builds the table of windows of the spatial dimensions of inputShape. For 1D poolings the
// embedded unit axis is omitted, and the remaining axis is reported as axis 0.
func windowsReport(call *pooling.Call, inputShape shapes.Shape) (*windowsTable, error) {
	embeddedShape := inputShape
	if call.Embedded1D {
		embeddedShape = pooling.Embed1DShape(inputShape, call.ChannelsAxis)
	}
	var windows [][]window.Window
	switch call.Mode {
	case pooling.ModeFixed:
		g, err := call.Geometry(embeddedShape)
		if err != nil {
			return nil, err
		}
		windows = make([][]window.Window, len(g.OutputDims))
		for dim, outDim := range g.OutputDims {
			for ii := range outDim {
				windows[dim] = append(windows[dim], g.Window(dim, ii, call.Kernel[dim], call.Strides[dim]))
			}
		}
	case pooling.ModeAdaptive:
		var err error
		windows, err = call.AdaptivePlan(embeddedShape)
		if err != nil {
			return nil, err
		}
	}
	inSpatial := layout.SpatialDimensions(embeddedShape, call.ChannelsAxis)
	wt := newWindowsTable()
	for dim, dimWindows := range windows {
		axis := dim
		if call.Embedded1D {
			if dim == 0 {
				continue
			}
			axis--
		}
		for ii, w := range dimWindows {
			wt.Add(axis, ii, w, inSpatial[dim])
		}
	}
	return wt, nil
}

// loadInput reads the input tensor from a .npy file.
func loadInput(filePath string) (*tensors.Tensor, error) {
	filePath, err := fsutil.ReplaceTilde(filePath)
	if err != nil {
		return nil, err
	}
	exists, err := fsutil.FileExists(filePath)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.Errorf("input file %q not found", filePath)
	}
	return numpy.FromNpyFile(filePath)
}

func randomInput(shape shapes.Shape) *tensors.Tensor {
	values := make([]float32, shape.Size())
	for ii := range values {
		values[ii] = rand.Float32()
	}
	return tensors.FromFlatDataAndDimensions(values, shape.Dimensions...)
}

// run executes the pooling on x, and optionally saves the results.
func run(x *tensors.Tensor, kind pooling.Kind, params pooling.Params) {
	engine, err := simplego.NewFromEnv()
	if err != nil {
		klog.Errorf("Failed to create engine: %+v", err)
		os.Exit(1)
	}
	b := newBuilder(x, kind, modeFromFlags(), params)
	start := time.Now()
	result, err := b.Exec(engine)
	if err != nil {
		klog.Errorf("Failed to execute %s: %+v", b, err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	fmt.Println(titleStyle.Render("Execution"))
	table := newPlainTable(false, lipgloss.Right, lipgloss.Left)
	table.Row("engine", engine.String())
	table.Row("elapsed", elapsed.String())
	table.Row("output", result.Output.String())
	if result.Indices != nil {
		table.Row("indices", result.Indices.String())
	}
	if *flagSave != "" {
		filePath, err := saveResults(*flagSave, x, result)
		if err != nil {
			klog.Errorf("Failed to save results: %+v", err)
			os.Exit(1)
		}
		table.Row("saved to", filePath)
	}
	fmt.Println(table.Render())
}

// saveResults writes the input, output and (if present) indices to a .npz file, and returns its expanded path.
func saveResults(filePath string, x *tensors.Tensor, result *pooling.Result) (string, error) {
	filePath, err := fsutil.ReplaceTilde(filePath)
	if err != nil {
		return "", err
	}
	err = numpy.ToNpzFile(map[string]*tensors.Tensor{
		"input":   x,
		"output":  result.Output,
		"indices": result.Indices,
	}, filePath)
	if err != nil {
		return "", err
	}
	return filePath, nil
}

func modeFromFlags() pooling.Mode {
	if *flagAdaptive {
		return pooling.ModeAdaptive
	}
	return pooling.ModeFixed
}
