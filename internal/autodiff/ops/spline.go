package ops

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/spline"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// SplineOp records the evaluation of per-channel piecewise-linear
// activation functions.
//
// Forward: every input element x in channel c is located in a knot
// interval [k_i, k_{i+1}] of the shared grid and interpolated between the
// channel's coefficients c_i and c_{i+1}. Inputs outside the grid clamp to
// the boundary segment, so the fraction leaves [0, 1] and interpolation
// becomes linear extrapolation along the boundary slope.
//
// Backward uses the stored index-and-weight pairs:
//   - input gradient: upstream * slope of the enclosing segment
//   - coefficient gradient: scatter-add of upstream * (1-frac) into c_i and
//     upstream * frac into c_{i+1}; many input elements map to the same
//     coefficient, so contributions accumulate
type SplineOp struct {
	input, coeffs, output *tensor.RawTensor
	grid                  *spline.Grid
	channels              int

	// Per input element: flat index of c_i in the coefficient matrix and
	// the interpolation fraction, recorded during the forward pass.
	coefIndex []int32
	fracs     []float32
}

// NewSplineOp evaluates the spline forward pass and records the
// index-and-weight pairs needed for the backward pass.
//
// input is [N, C, H, W] (conv) or [N, F] (fc); coeffs is [channels, knots].
func NewSplineOp(input, coeffs *tensor.RawTensor, grid *spline.Grid, channels int, device tensor.Device) *SplineOp {
	knots := grid.Size()
	if coeffs.NumElements() != channels*knots {
		panic(fmt.Sprintf("spline: coefficient count %d != channels %d * knots %d",
			coeffs.NumElements(), channels, knots))
	}

	output, err := tensor.NewRaw(input.Shape(), tensor.Float32, device)
	if err != nil {
		panic(fmt.Sprintf("spline: %v", err))
	}

	xd := input.AsFloat32()
	cd := coeffs.AsFloat32()
	od := output.AsFloat32()

	channelOf := channelIndexer(input.Shape(), channels)

	coefIndex := make([]int32, len(xd))
	fracs := make([]float32, len(xd))

	for e, x := range xd {
		seg, frac := grid.Segment(x)
		ci := channelOf(e)*knots + seg
		coefIndex[e] = int32(ci)
		fracs[e] = frac
		od[e] = cd[ci]*(1-frac) + cd[ci+1]*frac
	}

	return &SplineOp{
		input:     input,
		coeffs:    coeffs,
		output:    output,
		grid:      grid,
		channels:  channels,
		coefIndex: coefIndex,
		fracs:     fracs,
	}
}

// channelIndexer maps a flat element index to its activation channel.
// Conv inputs [N, C, H, W] use dimension 1; fc inputs [N, F] use the last
// dimension.
func channelIndexer(shape tensor.Shape, channels int) func(int) int {
	switch len(shape) {
	case 2:
		if shape[1] != channels {
			panic(fmt.Sprintf("spline: input features %d != channels %d", shape[1], channels))
		}
		return func(flat int) int { return flat % channels }
	case 4:
		if shape[1] != channels {
			panic(fmt.Sprintf("spline: input channels %d != channels %d", shape[1], channels))
		}
		inner := shape[2] * shape[3]
		return func(flat int) int { return (flat / inner) % channels }
	default:
		panic(fmt.Sprintf("spline: expected 2D or 4D input, got %dD", len(shape)))
	}
}

// Backward computes the input gradient (segment slope) and the coefficient
// gradient (scatter-add of interpolation weights).
func (op *SplineOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradInput := zerosLike(op.input, backend)
	gradCoeffs := zerosLike(op.coeffs, backend)

	gd := outputGrad.AsFloat32()
	cd := op.coeffs.AsFloat32()
	gid := gradInput.AsFloat32()
	gcd := gradCoeffs.AsFloat32()

	knots := op.grid.Size()
	for e, g := range gd {
		ci := int(op.coefIndex[e])
		seg := ci % knots
		frac := op.fracs[e]

		gid[e] = g * (cd[ci+1] - cd[ci]) / op.grid.Width(seg)

		gcd[ci] += g * (1 - frac)
		gcd[ci+1] += g * frac
	}

	return []*tensor.RawTensor{gradInput, gradCoeffs}
}

// Inputs returns [input, coefficients].
func (op *SplineOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input, op.coeffs}
}

// Output returns the activation output.
func (op *SplineOp) Output() *tensor.RawTensor { return op.output }
