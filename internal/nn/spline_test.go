package nn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohanarrancherry/DeepSplines/internal/autodiff"
	"github.com/rohanarrancherry/DeepSplines/internal/backend/cpu"
	"github.com/rohanarrancherry/DeepSplines/internal/nn"
	"github.com/rohanarrancherry/DeepSplines/internal/spline"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

func newTestActivation(t *testing.T, opts spline.Options) *nn.SplineActivation[*cpu.CPUBackend] {
	t.Helper()
	act, err := nn.NewSplineActivation(opts, cpu.New())
	require.NoError(t, err)
	return act
}

func TestSplineActivation_ReproducesLeakyReLU(t *testing.T) {
	backend := cpu.New()
	act, err := nn.NewSplineActivation(spline.Options{
		Mode:           spline.ModeFC,
		Channels:       1,
		Range:          2,
		Step:           0.5,
		Init:           spline.InitLeakyReLU,
		ExplicitLinear: true,
		LearnBias:      true,
	}, backend)
	require.NoError(t, err)

	// Leaky ReLU is piecewise linear with its only kink at a knot, so the
	// layer reproduces it exactly, including outside the grid.
	xs := []float32{-3, -1.3, -0.25, 0, 0.7, 1.5, 4}
	input, err := tensor.FromSlice(xs, tensor.Shape{len(xs), 1}, backend)
	require.NoError(t, err)

	out := act.Forward(input).Raw().AsFloat32()
	for i, x := range xs {
		want := x
		if x < 0 {
			want = 0.01 * x
		}
		assert.InDelta(t, want, out[i], 1e-5, "x=%v", x)
	}
}

func TestSplineActivation_ConvShapes(t *testing.T) {
	backend := cpu.New()
	act, err := nn.NewSplineActivation(spline.Options{
		Mode:     spline.ModeConv,
		Channels: 2,
		Range:    1,
		Step:     0.5,
		Init:     spline.InitReLU,
	}, backend)
	require.NoError(t, err)

	input, err := tensor.FromSlice([]float32{
		0.5, -0.5, 0.25, -0.25,
		1, -1, 0.75, -0.75,
	}, tensor.Shape{1, 2, 2, 2}, backend)
	require.NoError(t, err)

	out := act.Forward(input)
	assert.Equal(t, tensor.Shape{1, 2, 2, 2}, out.Shape())

	// ReLU applied element-wise regardless of channel.
	want := []float32{0.5, 0, 0.25, 0, 1, 0, 0.75, 0}
	od := out.Raw().AsFloat32()
	for i, w := range want {
		assert.InDelta(t, w, od[i], 1e-5, "element %d", i)
	}
}

func TestSplineActivation_ShapeChecks(t *testing.T) {
	convAct := newTestActivation(t, spline.Options{
		Mode: spline.ModeConv, Channels: 2, Range: 1, Step: 0.5, Init: spline.InitReLU,
	})
	fcAct := newTestActivation(t, spline.Options{
		Mode: spline.ModeFC, Channels: 2, Range: 1, Step: 0.5, Init: spline.InitReLU,
	})

	backend := cpu.New()
	flat, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)
	wrongChannels, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)

	assert.Panics(t, func() { convAct.Forward(flat) })
	assert.Panics(t, func() { fcAct.Forward(wrongChannels) })
	assert.NotPanics(t, func() { fcAct.Forward(flat) })
}

func TestSplineActivation_Parameters(t *testing.T) {
	plain := newTestActivation(t, spline.Options{
		Mode: spline.ModeFC, Channels: 2, Range: 1, Step: 0.5, Init: spline.InitReLU,
	})
	assert.Len(t, plain.Parameters(), 1)

	frozen := newTestActivation(t, spline.Options{
		Mode: spline.ModeFC, Channels: 2, Range: 1, Step: 0.5, Init: spline.InitLeakyReLU,
		ExplicitLinear: true,
	})
	assert.Len(t, frozen.Parameters(), 2) // coefficients + slopes, bias frozen

	full := newTestActivation(t, spline.Options{
		Mode: spline.ModeFC, Channels: 2, Range: 1, Step: 0.5, Init: spline.InitLeakyReLU,
		ExplicitLinear: true, LearnBias: true,
	})
	assert.Len(t, full.Parameters(), 3)
}

func TestSplineActivation_SparsifyLifecycle(t *testing.T) {
	act := newTestActivation(t, spline.Options{
		Mode: spline.ModeFC, Channels: 1, Range: 1, Step: 0.5, Init: spline.InitReLU,
	})
	require.Equal(t, spline.StateTraining, act.State())

	// Sparsifying a training-state layer is a degenerate operation.
	_, err := act.Sparsify(1e-4)
	assert.ErrorIs(t, err, spline.ErrDegenerate)

	act.Eval()
	require.Equal(t, spline.StateEvaluating, act.State())

	// ReLU coefficients [0, 0, 0, 0.5, 1]: the two redundant interior knots
	// go, the kink at zero stays.
	result, err := act.Sparsify(1e-4)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Dropped)
	assert.Equal(t, spline.StateSparsified, act.State())
	assert.Equal(t, 3, act.Grid().Size())
	assert.Equal(t, tensor.Shape{1, 3}, act.Coefficients().Tensor().Shape())

	// Sparsification is terminal.
	_, err = act.Sparsify(1e-4)
	assert.ErrorIs(t, err, spline.ErrDegenerate)
	err = act.Train()
	assert.ErrorIs(t, err, spline.ErrDegenerate)
}

func TestSplineActivation_EvalAfterSparsify(t *testing.T) {
	backend := cpu.New()
	act, err := nn.NewSplineActivation(spline.Options{
		Mode: spline.ModeFC, Channels: 1, Range: 1, Step: 0.5, Init: spline.InitReLU,
	}, backend)
	require.NoError(t, err)

	xs := []float32{-0.75, 0.25, 2}
	input, err := tensor.FromSlice(xs, tensor.Shape{3, 1}, backend)
	require.NoError(t, err)

	before := act.Forward(input).Raw().AsFloat32()

	act.Eval()
	result, err := act.Sparsify(1e-4)
	require.NoError(t, err)
	require.Greater(t, result.Dropped, 0)

	// The sparsified layer evaluates through the same path on the reduced
	// non-uniform grid and must agree with the dense function.
	after := act.Forward(input).Raw().AsFloat32()
	for i := range xs {
		assert.InDelta(t, before[i], after[i], 1e-5, "x=%v", xs[i])
	}
}

func TestSplineActivation_LinearTermGradients(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	act, err := nn.NewSplineActivation(spline.Options{
		Mode:           spline.ModeFC,
		Channels:       2,
		Range:          1,
		Step:           0.5,
		Init:           spline.InitLeakyReLU,
		ExplicitLinear: true,
		LearnBias:      true,
	}, backend)
	require.NoError(t, err)

	input, err := tensor.FromSlice([]float32{
		0.5, -0.4,
		0.25, -0.25,
	}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)

	loss := act.Forward(input).Sum()
	grads := autodiff.Backward(loss, backend)

	// The slope gradient is the sum of each channel's inputs, carried
	// through the broadcasted multiply and its reshape.
	slopeGrad := grads[act.Slopes().Tensor().Raw()]
	require.NotNil(t, slopeGrad, "no gradient reached the slopes")
	assert.InDelta(t, 0.75, slopeGrad.AsFloat32()[0], 1e-5)
	assert.InDelta(t, -0.65, slopeGrad.AsFloat32()[1], 1e-5)

	// The bias gradient is the batch size for every channel.
	biasGrad := grads[act.Bias().Tensor().Raw()]
	require.NotNil(t, biasGrad, "no gradient reached the bias")
	assert.InDelta(t, 2.0, biasGrad.AsFloat32()[0], 1e-5)
	assert.InDelta(t, 2.0, biasGrad.AsFloat32()[1], 1e-5)

	// The coefficients receive their scatter-add gradient on the same tape.
	assert.NotNil(t, grads[act.Coefficients().Tensor().Raw()])
}

func TestSplineActivation_OptionsValidation(t *testing.T) {
	backend := cpu.New()

	_, err := nn.NewSplineActivation(spline.Options{
		Mode: "recurrent", Channels: 1, Range: 1, Step: 0.5, Init: spline.InitReLU,
	}, backend)
	assert.ErrorIs(t, err, spline.ErrBadGrid)

	_, err = nn.NewSplineActivation(spline.Options{
		Mode: spline.ModeFC, Channels: 0, Range: 1, Step: 0.5, Init: spline.InitReLU,
	}, backend)
	assert.ErrorIs(t, err, spline.ErrBadGrid)

	_, err = nn.NewSplineActivation(spline.Options{
		Mode: spline.ModeFC, Channels: 1, Range: 1, Step: 0.5, Init: "gelu",
	}, backend)
	assert.ErrorIs(t, err, spline.ErrUnknownInit)
}
