// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package pooling

import (
	"fmt"
	"reflect"

	"github.com/gomlx/pooling/pkg/core/layout"
	"github.com/gomlx/pooling/pkg/core/padding"
	"github.com/gomlx/pooling/pkg/core/shapes"
	"github.com/gomlx/pooling/pkg/core/tensors"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Builder is a helper to configure and run a pooling.
// Create it with {Max|Avg|AdaptiveMax|AdaptiveAvg}Pool (or one of their 1D/2D/3D variants), set the desired
// parameters, and call Plan, Exec or Done.
//
// Configuration errors are kept and returned by Plan and Exec, or panicked by Done.
type Builder struct {
	x             shapes.HasShape
	kind          Kind
	mode          Mode
	params        Params
	returnIndices bool
	err           error
}

func newBuilder(x shapes.HasShape, kind Kind, mode Mode, numSpatialDims int) *Builder {
	return &Builder{
		x:      x,
		kind:   kind,
		mode:   mode,
		params: Params{NumSpatialDims: numSpatialDims},
	}
}

// MaxPool prepares a max pooling over numSpatialDims (1, 2 or 3) spatial dimensions of x.
//
// x can be a *tensors.Tensor, or just a shapes.Shape if the pooling is only going to be planned.
// By default, x is shaped `[batch, channels, <spatial_dimensions...>]` (channels-first), see DataFormat.
//
// The window size must be set with Window or WindowPerAxis. Strides default to the window size, and
// padding defaults to none.
func MaxPool(x shapes.HasShape, numSpatialDims int) *Builder {
	return newBuilder(x, KindMax, ModeFixed, numSpatialDims)
}

// AvgPool prepares an average pooling over numSpatialDims (1, 2 or 3) spatial dimensions of x.
//
// By default, padding positions are not counted in the divisor, see CountIncludePad and DivisorOverride.
// Other defaults are the same as MaxPool.
func AvgPool(x shapes.HasShape, numSpatialDims int) *Builder {
	return newBuilder(x, KindAvg, ModeFixed, numSpatialDims)
}

// AdaptiveMaxPool prepares a max pooling over numSpatialDims (1, 2 or 3) spatial dimensions of x, with the windows
// derived from the output size, which must be set with OutputSize or OutputSizePerAxis.
func AdaptiveMaxPool(x shapes.HasShape, numSpatialDims int) *Builder {
	return newBuilder(x, KindMax, ModeAdaptive, numSpatialDims)
}

// AdaptiveAvgPool prepares an average pooling over numSpatialDims (1, 2 or 3) spatial dimensions of x, with the
// windows derived from the output size, which must be set with OutputSize or OutputSizePerAxis.
//
// Each window is divided by its number of elements.
func AdaptiveAvgPool(x shapes.HasShape, numSpatialDims int) *Builder {
	return newBuilder(x, KindAvg, ModeAdaptive, numSpatialDims)
}

// MaxPool1D is an alias to MaxPool(x, 1).
func MaxPool1D(x shapes.HasShape) *Builder { return MaxPool(x, 1) }

// MaxPool2D is an alias to MaxPool(x, 2).
func MaxPool2D(x shapes.HasShape) *Builder { return MaxPool(x, 2) }

// MaxPool3D is an alias to MaxPool(x, 3).
func MaxPool3D(x shapes.HasShape) *Builder { return MaxPool(x, 3) }

// AvgPool1D is an alias to AvgPool(x, 1).
func AvgPool1D(x shapes.HasShape) *Builder { return AvgPool(x, 1) }

// AvgPool2D is an alias to AvgPool(x, 2).
func AvgPool2D(x shapes.HasShape) *Builder { return AvgPool(x, 2) }

// AvgPool3D is an alias to AvgPool(x, 3).
func AvgPool3D(x shapes.HasShape) *Builder { return AvgPool(x, 3) }

// AdaptiveMaxPool1D is an alias to AdaptiveMaxPool(x, 1).
func AdaptiveMaxPool1D(x shapes.HasShape) *Builder { return AdaptiveMaxPool(x, 1) }

// AdaptiveMaxPool2D is an alias to AdaptiveMaxPool(x, 2).
func AdaptiveMaxPool2D(x shapes.HasShape) *Builder { return AdaptiveMaxPool(x, 2) }

// AdaptiveMaxPool3D is an alias to AdaptiveMaxPool(x, 3).
func AdaptiveMaxPool3D(x shapes.HasShape) *Builder { return AdaptiveMaxPool(x, 3) }

// AdaptiveAvgPool1D is an alias to AdaptiveAvgPool(x, 1).
func AdaptiveAvgPool1D(x shapes.HasShape) *Builder { return AdaptiveAvgPool(x, 1) }

// AdaptiveAvgPool2D is an alias to AdaptiveAvgPool(x, 2).
func AdaptiveAvgPool2D(x shapes.HasShape) *Builder { return AdaptiveAvgPool(x, 2) }

// AdaptiveAvgPool3D is an alias to AdaptiveAvgPool(x, 3).
func AdaptiveAvgPool3D(x shapes.HasShape) *Builder { return AdaptiveAvgPool(x, 3) }

// String implements fmt.Stringer.
func (b *Builder) String() string {
	return fmt.Sprintf("%s%sPool%dD", b.mode, b.kind, b.params.NumSpatialDims)
}

// setErr keeps the first configuration error.
func (b *Builder) setErr(err error) {
	if b.err == nil && err != nil {
		b.err = err
	}
}

// DataFormat configures the layout of the input: "NCL" or "NLC" for 1D, "NCHW" or "NHWC" for 2D and "NCDHW" or
// "NDHWC" for 3D. The default is channels-first.
func (b *Builder) DataFormat(format string) *Builder {
	b.params.DataFormat = format
	return b
}

// ChannelsAxis configures the axis for the channels (aka. "depth" or "features") dimension.
// It's an alternative to DataFormat.
func (b *Builder) ChannelsAxis(config layout.ChannelsAxisConfig) *Builder {
	format := layout.DataFormat(config, b.params.NumSpatialDims)
	if format == "" {
		b.setErr(InvalidArgumentf("%s: invalid ChannelsAxis(%s)", b, config))
	}
	b.params.DataFormat = format
	return b
}

// Window sets the pooling window size for all spatial dimensions to the same windowSize.
func (b *Builder) Window(windowSize int) *Builder {
	b.params.Kernel = []int{windowSize}
	return b
}

// WindowPerAxis sets the pooling window size for each spatial dimension.
func (b *Builder) WindowPerAxis(sizes ...int) *Builder {
	b.params.Kernel = sizes
	return b
}

// Strides sets the same stride for every spatial dimension. The default is the window size.
func (b *Builder) Strides(strides int) *Builder {
	b.params.Strides = []int{strides}
	return b
}

// StridePerAxis sets the strides for each spatial dimension. The default is the window size.
func (b *Builder) StridePerAxis(strides ...int) *Builder {
	b.params.Strides = strides
	return b
}

// Padding sets the padding in any of the notations of package padding.
func (b *Builder) Padding(raw padding.Raw) *Builder {
	b.params.Padding = raw
	return b
}

// PaddingAny sets the padding from a loosely typed value. See padding.FromAny for the accepted values.
func (b *Builder) PaddingAny(value any) *Builder {
	raw, err := padding.FromAny(value, b.params.NumSpatialDims)
	b.setErr(err)
	b.params.Padding = raw
	return b
}

// PadSame pads the input such that the output spatial dimensions are ceil(input/stride).
func (b *Builder) PadSame() *Builder {
	return b.Padding(padding.Mode("SAME"))
}

// PadValid uses no padding, and floor rounding of the output dimensions.
func (b *Builder) PadValid() *Builder {
	return b.Padding(padding.Mode("VALID"))
}

// NoPadding removes any padding. This is the default.
func (b *Builder) NoPadding() *Builder {
	b.params.Padding = nil
	return b
}

// PaddingPerDim specifies the paddings at the start and at the end to use per spatial dimension,
// that means one pair ([2]int) per spatial dimension.
func (b *Builder) PaddingPerDim(paddings [][2]int) *Builder {
	flat := make(padding.PerDimFlat, 0, 2*len(paddings))
	for _, pair := range paddings {
		flat = append(flat, pair[0], pair[1])
	}
	return b.Padding(flat)
}

// CeilMode rounds the output dimensions up instead of down. Default is false.
func (b *Builder) CeilMode(ceilMode bool) *Builder {
	b.params.CeilMode = ceilMode
	return b
}

// CountIncludePad makes average pooling divide by the full window size, including padding positions.
// Default is false.
func (b *Builder) CountIncludePad(countIncludePad bool) *Builder {
	b.params.CountIncludePad = countIncludePad
	return b
}

// Exclusive is the opposite of CountIncludePad. Default is true.
func (b *Builder) Exclusive(exclusive bool) *Builder {
	return b.CountIncludePad(!exclusive)
}

// DivisorOverride makes average pooling divide every window by the given positive divisor.
func (b *Builder) DivisorOverride(divisor float64) *Builder {
	b.params.DivisorOverride = divisor
	if divisor == 0 {
		b.setErr(InvalidArgumentf("%s: DivisorOverride(0): the divisor must be positive", b))
	}
	return b
}

// ReturnIndices makes max pooling also return, for each output position, the flat index of the max value within
// the spatial dimensions of the input. Only supported with channels-first data format.
func (b *Builder) ReturnIndices(returnIndices bool) *Builder {
	b.returnIndices = returnIndices
	return b
}

// OutputSize sets the same output size for every spatial dimension of an adaptive pooling.
// Use window.KeepInputDim to keep the input dimensions.
func (b *Builder) OutputSize(size int) *Builder {
	b.params.OutputSize = []int{size}
	return b
}

// OutputSizePerAxis sets the output size of each spatial dimension of an adaptive pooling.
// Use window.KeepInputDim to keep the input dimension for an axis.
func (b *Builder) OutputSizePerAxis(sizes ...int) *Builder {
	b.params.OutputSize = sizes
	return b
}

// isNilInput returns whether x is nil, or a typed nil pointer (e.g.: a nil *tensors.Tensor).
func isNilInput(x shapes.HasShape) bool {
	if x == nil {
		return true
	}
	v := reflect.ValueOf(x)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// inputShape returns the shape of x, embedded for 1D calls.
func (b *Builder) inputShape(call *Call) shapes.Shape {
	shape := b.x.Shape()
	if call.Embedded1D {
		shape = Embed1DShape(shape, call.ChannelsAxis)
	}
	return shape
}

// Plan validates the configuration against the input shape, and returns the Call to be executed on the input
// (embedded to 2D for 1D poolings, see Embed1DShape).
//
// Errors wrap ErrShapeMismatch if the rank of x doesn't match the number of spatial dimensions, or
// ErrInvalidArgument otherwise.
func (b *Builder) Plan() (*Call, error) {
	if b.err != nil {
		return nil, b.err
	}
	if isNilInput(b.x) {
		return nil, InvalidArgumentf("%s: no input given (x=%T(nil))", b, b.x)
	}
	shape := b.x.Shape()
	wantRank := b.params.NumSpatialDims + 2
	if shape.Rank() != wantRank {
		return nil, ShapeMismatchf("%s requires an input of rank %d ([batch, channels, <%d spatial dims>] or "+
			"[batch, <%d spatial dims>, channels]), got shape %s",
			b, wantRank, b.params.NumSpatialDims, b.params.NumSpatialDims, shape)
	}
	call, err := Plan(b.kind, b.mode, b.returnIndices, b.params)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s", b)
	}
	if _, err = call.OutputShape(b.inputShape(call)); err != nil {
		return nil, errors.WithMessagef(err, "%s on input %s", b, shape)
	}
	return call, nil
}

// OutputShape returns the shape of the output of the pooling of x. For 1D poolings it is the projected 1D shape.
func (b *Builder) OutputShape() (shapes.Shape, error) {
	call, err := b.Plan()
	if err != nil {
		return shapes.Invalid(), err
	}
	output, err := call.OutputShape(b.inputShape(call))
	if err != nil {
		return shapes.Invalid(), err
	}
	if call.Embedded1D {
		return Project1DShape(output, call.ChannelsAxis)
	}
	return output, nil
}

// Exec plans and executes the pooling of x with the given engine. x must be a *tensors.Tensor.
//
// For 1D poolings, the input is reshaped to the embedded 2D shape and the results are projected back to 1D.
func (b *Builder) Exec(engine Engine) (*Result, error) {
	call, err := b.Plan()
	if err != nil {
		return nil, err
	}
	x, ok := b.x.(*tensors.Tensor)
	if !ok {
		return nil, InvalidArgumentf("%s: Exec requires a *tensors.Tensor input, got %T", b, b.x)
	}
	if call.Embedded1D {
		x, err = x.Reshape(b.inputShape(call).Dimensions...)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s: embedding 1D input", b)
		}
	}
	klog.V(1).Infof("pooling: executing %s on %s with engine %q", call, x.Shape(), engine.Name())
	result, err := engine.Execute(call, x)
	if err != nil {
		return nil, errors.WithMessagef(err, "%s: engine %q failed", b, engine.Name())
	}
	if err = checkResult(call, x.Shape(), result); err != nil {
		return nil, errors.WithMessagef(err, "%s: engine %q returned an invalid result", b, engine.Name())
	}
	if call.Embedded1D {
		result, err = Project1D(result, call.ChannelsAxis)
		if err != nil {
			return nil, errors.WithMessagef(err, "%s: projecting 1D results", b)
		}
	}
	return result, nil
}

// checkResult verifies the shapes of the result an engine returned for the execution of call on an input
// shaped inputShape.
func checkResult(call *Call, inputShape shapes.Shape, result *Result) error {
	if result == nil || result.Output == nil {
		return ShapeMismatchf("missing output")
	}
	want, err := call.OutputShape(inputShape)
	if err != nil {
		return err
	}
	if !result.Output.Shape().Equal(want) {
		return ShapeMismatchf("output shaped %s, expected %s", result.Output.Shape(), want)
	}
	if !call.ReturnIndices {
		return nil
	}
	if result.Indices == nil {
		return ShapeMismatchf("indices were requested but not returned")
	}
	if result.Indices.DType() != IndicesDType || !result.Indices.Shape().EqualDimensions(want) {
		return ShapeMismatchf("indices shaped %s, expected %s", result.Indices.Shape(), want.WithDType(IndicesDType))
	}
	return nil
}

// Done plans and executes the pooling, like Exec, but panics on error.
// The panic can be converted back to an error with exceptions.TryCatch[error].
func (b *Builder) Done(engine Engine) *Result {
	result, err := b.Exec(engine)
	if err != nil {
		panic(err)
	}
	return result
}
