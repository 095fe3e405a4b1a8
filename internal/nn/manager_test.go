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

// tinyModel is a minimal Module with one main layer and one spline layer.
type tinyModel[B tensor.Backend] struct {
	fc  *nn.Linear[B]
	act *nn.SplineActivation[B]
}

func (m *tinyModel[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	return m.act.Forward(m.fc.Forward(input))
}

func (m *tinyModel[B]) Parameters() []*nn.Parameter[B] {
	params := m.fc.Parameters()
	return append(params, m.act.Parameters()...)
}

func newTinyModel[B tensor.Backend](t *testing.T, manager *nn.ActivationManager[B], backend B) *tinyModel[B] {
	t.Helper()
	act, err := nn.NewSplineActivation(spline.Options{
		Mode:     spline.ModeFC,
		Channels: 4,
		Range:    1,
		Step:     0.5,
		Init:     spline.InitReLU,
	}, backend)
	require.NoError(t, err)
	manager.Register(act)

	return &tinyModel[B]{
		fc:  nn.NewLinear(3, 4, backend),
		act: act,
	}
}

func TestManager_NotRegistered(t *testing.T) {
	manager := nn.NewActivationManager(cpu.New())

	_, err := manager.ParametersSpline()
	assert.ErrorIs(t, err, nn.ErrNotRegistered)

	_, _, err = manager.TVBV(0.1, 0)
	assert.ErrorIs(t, err, nn.ErrNotRegistered)

	_, err = manager.SparsifyActivations(1e-4)
	assert.ErrorIs(t, err, nn.ErrNotRegistered)
}

func TestManager_ParameterPartition(t *testing.T) {
	backend := cpu.New()
	manager := nn.NewActivationManager(backend)
	model := newTinyModel(t, manager, backend)

	splineParams, err := manager.ParametersSpline()
	require.NoError(t, err)
	assert.Len(t, splineParams, 1) // coefficients only, no explicit linear

	mainParams, err := manager.ParametersMain(model)
	require.NoError(t, err)
	assert.Len(t, mainParams, 2) // linear weight + bias

	// The groups are disjoint: no spline parameter appears in main.
	isSpline := map[*nn.Parameter[*cpu.CPUBackend]]bool{}
	for _, p := range splineParams {
		isSpline[p] = true
	}
	for _, p := range mainParams {
		assert.False(t, isSpline[p], "parameter %s in both groups", p.Name())
	}
}

func TestManager_ExplicitLinearPartition(t *testing.T) {
	backend := cpu.New()
	manager := nn.NewActivationManager(backend)

	act, err := nn.NewSplineActivation(spline.Options{
		Mode:           spline.ModeFC,
		Channels:       4,
		Range:          1,
		Step:           0.5,
		Init:           spline.InitLeakyReLU,
		ExplicitLinear: true,
		LearnBias:      true,
	}, backend)
	require.NoError(t, err)
	manager.Register(act)

	model := &tinyModel[*cpu.CPUBackend]{
		fc:  nn.NewLinear(3, 4, backend),
		act: act,
	}

	// Only the coefficient matrix trains under the spline optimizer.
	splineParams, err := manager.ParametersSpline()
	require.NoError(t, err)
	require.Len(t, splineParams, 1)
	assert.Same(t, act.Coefficients(), splineParams[0])

	// The linear-term slope and bias are main network parameters, next to
	// the layer weights and biases, so weight decay reaches them.
	mainParams, err := manager.ParametersMain(model)
	require.NoError(t, err)
	assert.Len(t, mainParams, 4)
	assert.Contains(t, mainParams, act.Slopes())
	assert.Contains(t, mainParams, act.Bias())
	assert.NotContains(t, mainParams, act.Coefficients())
}

func TestManager_TVBV(t *testing.T) {
	backend := cpu.New()
	manager := nn.NewActivationManager(backend)
	newTinyModel(t, manager, backend)

	// ReLU coefficients [0, 0, 0, 0.5, 1] per channel: TV = 1 and BV = 0.5
	// for each of the 4 channels.
	total, unweighted, err := manager.TVBV(0.1, 0)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, unweighted, 1e-6)
	assert.InDelta(t, 0.4, total.Raw().AsFloat32()[0], 1e-6)

	total, unweighted, err = manager.TVBV(0.1, 0.2)
	require.NoError(t, err)
	assert.InDelta(t, 6.0, unweighted, 1e-6) // TV 4 + BV 2
	assert.InDelta(t, 0.8, total.Raw().AsFloat32()[0], 1e-6)

	// Both weights zero: a zero tensor, nothing to monitor.
	total, unweighted, err = manager.TVBV(0, 0)
	require.NoError(t, err)
	assert.Zero(t, unweighted)
	assert.Zero(t, total.Raw().AsFloat32()[0])
}

func TestManager_WeightDecayExcludesSplines(t *testing.T) {
	backend := cpu.New()
	manager := nn.NewActivationManager(backend)
	model := newTinyModel(t, manager, backend)

	wd, err := manager.WeightDecay(model, 0.5)
	require.NoError(t, err)

	// Sum of squares over the main parameters only.
	var want float64
	mainParams, err := manager.ParametersMain(model)
	require.NoError(t, err)
	for _, p := range mainParams {
		for _, v := range p.Tensor().Raw().AsFloat32() {
			want += 0.5 * float64(v) * float64(v)
		}
	}
	assert.InDelta(t, want, float64(wd.Raw().AsFloat32()[0]), 1e-5)
}

func TestManager_SparsifyActivations(t *testing.T) {
	backend := cpu.New()
	manager := nn.NewActivationManager(backend)
	newTinyModel(t, manager, backend)

	// Non-positive threshold is a warned no-op.
	dropped, err := manager.SparsifyActivations(0)
	require.NoError(t, err)
	assert.Zero(t, dropped)

	// Layers still in the training state are skipped, not failed.
	dropped, err = manager.SparsifyActivations(1e-4)
	require.NoError(t, err)
	assert.Zero(t, dropped)

	manager.Eval()
	dropped, err = manager.SparsifyActivations(1e-4)
	require.NoError(t, err)
	assert.Equal(t, 2, dropped) // the shared ReLU grid loses its 2 redundant knots

	// Training after sparsification is rejected.
	assert.ErrorIs(t, manager.Train(), spline.ErrDegenerate)
}

func TestManager_SparsifySkipsLiveTape(t *testing.T) {
	backend := autodiff.New(cpu.New())
	manager := nn.NewActivationManager(backend)
	newTinyModel(t, manager, backend)

	manager.Eval()
	backend.Tape().StartRecording()

	dropped, err := manager.SparsifyActivations(1e-4)
	require.NoError(t, err)
	assert.Zero(t, dropped)
	for _, act := range manager.Activations() {
		assert.Equal(t, spline.StateEvaluating, act.State())
	}

	backend.Tape().StopRecording()
	dropped, err = manager.SparsifyActivations(1e-4)
	require.NoError(t, err)
	assert.Greater(t, dropped, 0)
}
