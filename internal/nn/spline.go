package nn

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rohanarrancherry/DeepSplines/internal/spline"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// SplineBackend is implemented by autodiff-aware backends that evaluate
// spline activations with gradient recording. The coefficient gradient uses
// a scatter-add of interpolation weights, so it cannot be composed from the
// generic tensor primitives.
type SplineBackend interface {
	Spline(input, coeffs *tensor.RawTensor, grid *spline.Grid, channels int) *tensor.RawTensor
}

// regularizeBackend is implemented by backends that record the TV and BV
// penalties on the tape.
type regularizeBackend interface {
	TV(coeffs *tensor.RawTensor, channels int, weight float64) (*tensor.RawTensor, float64)
	BV(coeffs *tensor.RawTensor, channels int, weight float64) (*tensor.RawTensor, float64)
}

// SplineActivation is a learnable piecewise-linear activation layer. Each
// of its channels owns an independent function, defined by coefficients at
// the knots of a grid shared by the whole layer.
//
// With the explicit-linear variant the output is
//
//	y = spline_c(x) + slope_c * x + bias_c
//
// which keeps the spline part bounded while the linear term carries the
// unbounded component; the initialization splits the reference function
// accordingly, so the layer reproduces it exactly at construction.
//
// The layer moves through one-way lifecycle states: training, evaluating,
// sparsified. Sparsification rewrites the grid and coefficients in place
// and is only valid in the evaluating state.
type SplineActivation[B tensor.Backend] struct {
	opts spline.Options
	grid *spline.Grid

	coeffs *Parameter[B] // [channels, knots]
	slopes *Parameter[B] // [channels], nil unless explicit-linear
	bias   *Parameter[B] // [channels], nil unless explicit-linear

	state   spline.State
	backend B
}

// NewSplineActivation creates a spline activation layer for the given
// options, with coefficients initialized from the configured reference
// function.
func NewSplineActivation[B tensor.Backend](opts spline.Options, backend B) (*SplineActivation[B], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	grid, err := spline.NewGrid(opts.Range, opts.Step)
	if err != nil {
		return nil, err
	}

	init, err := spline.InitialValues(opts.Init, grid, opts.Channels, opts.ExplicitLinear)
	if err != nil {
		return nil, err
	}

	coeffsTensor, err := tensor.FromSlice(init.Coefficients, tensor.Shape{opts.Channels, grid.Size()}, backend)
	if err != nil {
		return nil, errors.Wrap(err, "spline activation: coefficients")
	}

	s := &SplineActivation[B]{
		opts:    opts,
		grid:    grid,
		coeffs:  NewParameter("spline.coefficients", coeffsTensor),
		state:   spline.StateTraining,
		backend: backend,
	}

	if opts.ExplicitLinear {
		slopesTensor, err := tensor.FromSlice(init.Slopes, tensor.Shape{opts.Channels}, backend)
		if err != nil {
			return nil, errors.Wrap(err, "spline activation: slopes")
		}
		biasTensor, err := tensor.FromSlice(init.Biases, tensor.Shape{opts.Channels}, backend)
		if err != nil {
			return nil, errors.Wrap(err, "spline activation: bias")
		}
		s.slopes = NewParameter("spline.slope", slopesTensor)
		s.bias = NewParameter("spline.bias", biasTensor)
	}

	return s, nil
}

// Forward evaluates the activation element-wise.
//
// Conv mode expects [N, C, H, W] with C == Channels; fc mode expects [N, F]
// with F == Channels. Every element of channel c goes through that
// channel's function; inputs outside the grid extrapolate linearly along
// the boundary segments.
func (s *SplineActivation[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	s.checkShape(input.Shape())

	var output *tensor.Tensor[float32, B]
	if adBackend, ok := any(s.backend).(SplineBackend); ok {
		raw := adBackend.Spline(input.Raw(), s.coeffs.Tensor().Raw(), s.grid, s.opts.Channels)
		output = tensor.New[float32, B](raw, s.backend)
	} else {
		output = s.evalDirect(input)
	}

	if !s.opts.ExplicitLinear {
		return output
	}

	slopesView := s.channelView(s.slopes.Tensor())
	biasView := s.channelView(s.bias.Tensor())
	return output.Add(input.Mul(slopesView)).Add(biasView)
}

// checkShape validates that the input matches the configured mode and
// channel count.
func (s *SplineActivation[B]) checkShape(shape tensor.Shape) {
	switch s.opts.Mode {
	case spline.ModeConv:
		if len(shape) != 4 {
			panic(fmt.Sprintf("spline activation: conv mode expects 4D input, got %dD", len(shape)))
		}
		if shape[1] != s.opts.Channels {
			panic(fmt.Sprintf("spline activation: input channels %d != %d", shape[1], s.opts.Channels))
		}
	case spline.ModeFC:
		if len(shape) != 2 {
			panic(fmt.Sprintf("spline activation: fc mode expects 2D input, got %dD", len(shape)))
		}
		if shape[1] != s.opts.Channels {
			panic(fmt.Sprintf("spline activation: input features %d != %d", shape[1], s.opts.Channels))
		}
	}
}

// channelView reshapes a [channels] parameter so arithmetic broadcasts over
// the non-channel dimensions, staying on the tape.
func (s *SplineActivation[B]) channelView(t *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if s.opts.Mode == spline.ModeConv {
		return t.Reshape(1, s.opts.Channels, 1, 1)
	}
	return t.Reshape(1, s.opts.Channels)
}

// evalDirect evaluates the spline on a plain backend, without gradient
// tracking.
func (s *SplineActivation[B]) evalDirect(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	raw, err := tensor.NewRaw(input.Shape(), tensor.Float32, s.backend.Device())
	if err != nil {
		panic(err)
	}

	xd := input.Raw().AsFloat32()
	cd := s.coeffs.Tensor().Raw().AsFloat32()
	od := raw.AsFloat32()

	knots := s.grid.Size()
	inner := 1
	if s.opts.Mode == spline.ModeConv {
		shape := input.Shape()
		inner = shape[2] * shape[3]
	}

	for e, x := range xd {
		ch := (e / inner) % s.opts.Channels
		seg, frac := s.grid.Segment(x)
		ci := ch*knots + seg
		od[e] = cd[ci]*(1-frac) + cd[ci+1]*frac
	}

	return tensor.New[float32, B](raw, s.backend)
}

// Parameters returns the layer's trainable parameters: the coefficient
// matrix and, for the explicit-linear variant, the slope vector plus the
// bias vector when it is configured as learnable. Only the coefficient
// matrix belongs to the manager's spline optimizer group; the linear term
// trains with the main network weights.
func (s *SplineActivation[B]) Parameters() []*Parameter[B] {
	params := []*Parameter[B]{s.coeffs}
	if s.opts.ExplicitLinear {
		params = append(params, s.slopes)
		if s.opts.LearnBias {
			params = append(params, s.bias)
		}
	}
	return params
}

// TV returns the weighted total-variation penalty of this layer's
// coefficients and its unweighted value. With an autodiff-aware backend the
// penalty is recorded on the tape so its subgradient reaches the
// coefficients.
func (s *SplineActivation[B]) TV(weight float64) (*tensor.Tensor[float32, B], float64) {
	if adBackend, ok := any(s.backend).(regularizeBackend); ok {
		raw, unweighted := adBackend.TV(s.coeffs.Tensor().Raw(), s.opts.Channels, weight)
		return tensor.New[float32, B](raw, s.backend), unweighted
	}

	value, _ := spline.TV(s.coeffs.Tensor().Raw().AsFloat32(), s.opts.Channels, s.grid.Size())
	return s.scalar(weight * value), value
}

// BV returns the weighted bounded-variation penalty of this layer's
// coefficients and its unweighted value.
func (s *SplineActivation[B]) BV(weight float64) (*tensor.Tensor[float32, B], float64) {
	if adBackend, ok := any(s.backend).(regularizeBackend); ok {
		raw, unweighted := adBackend.BV(s.coeffs.Tensor().Raw(), s.opts.Channels, weight)
		return tensor.New[float32, B](raw, s.backend), unweighted
	}

	value, _ := spline.BV(s.coeffs.Tensor().Raw().AsFloat32(), s.opts.Channels, s.grid.Size())
	return s.scalar(weight * value), value
}

func (s *SplineActivation[B]) scalar(v float64) *tensor.Tensor[float32, B] {
	raw, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, s.backend.Device())
	if err != nil {
		panic(err)
	}
	raw.AsFloat32()[0] = float32(v)
	return tensor.New[float32, B](raw, s.backend)
}

// Sparsify drops knots whose removal leaves every channel's function
// unchanged within the slope threshold, then rewrites the layer's grid and
// coefficient parameter. Valid only in the evaluating state; the layer
// moves to the sparsified state afterwards and cannot return to training.
func (s *SplineActivation[B]) Sparsify(threshold float32) (spline.SparsifyResult, error) {
	switch s.state {
	case spline.StateTraining:
		return spline.SparsifyResult{}, errors.Wrap(spline.ErrDegenerate, "sparsify called in training state")
	case spline.StateSparsified:
		return spline.SparsifyResult{}, errors.Wrap(spline.ErrDegenerate, "layer already sparsified")
	}

	result := spline.Sparsify(s.grid, s.coeffs.Tensor().Raw().AsFloat32(), s.opts.Channels, threshold)

	if result.Dropped > 0 {
		coeffsTensor, err := tensor.FromSlice(result.Coefficients,
			tensor.Shape{s.opts.Channels, result.Grid.Size()}, s.backend)
		if err != nil {
			return spline.SparsifyResult{}, errors.Wrap(err, "sparsify: rebuild coefficients")
		}
		s.grid = result.Grid
		s.coeffs = NewParameter("spline.coefficients", coeffsTensor)
	}

	s.state = spline.StateSparsified
	return result, nil
}

// Eval moves a training-state layer to the evaluating state.
func (s *SplineActivation[B]) Eval() {
	if s.state == spline.StateTraining {
		s.state = spline.StateEvaluating
	}
}

// Train moves the layer back to the training state. Sparsified layers
// cannot be trained again: their grid is non-uniform and their parameter
// identity changed.
func (s *SplineActivation[B]) Train() error {
	if s.state == spline.StateSparsified {
		return errors.Wrap(spline.ErrDegenerate, "cannot train a sparsified layer")
	}
	s.state = spline.StateTraining
	return nil
}

// State returns the lifecycle state.
func (s *SplineActivation[B]) State() spline.State { return s.state }

// Grid returns the layer's knot grid.
func (s *SplineActivation[B]) Grid() *spline.Grid { return s.grid }

// Coefficients returns the coefficient parameter.
func (s *SplineActivation[B]) Coefficients() *Parameter[B] { return s.coeffs }

// Slopes returns the linear-term slope parameter, nil unless the layer is
// explicit-linear.
func (s *SplineActivation[B]) Slopes() *Parameter[B] { return s.slopes }

// Bias returns the linear-term bias parameter, nil unless the layer is
// explicit-linear.
func (s *SplineActivation[B]) Bias() *Parameter[B] { return s.bias }

// Channels returns the number of independent activation functions.
func (s *SplineActivation[B]) Channels() int { return s.opts.Channels }

// String describes the layer configuration.
func (s *SplineActivation[B]) String() string {
	return fmt.Sprintf("SplineActivation(mode=%s, channels=%d, knots=%d, init=%s, state=%s)",
		s.opts.Mode, s.opts.Channels, s.grid.Size(), s.opts.Init, s.state)
}
