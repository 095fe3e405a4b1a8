package nn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohanarrancherry/DeepSplines/internal/backend/cpu"
	"github.com/rohanarrancherry/DeepSplines/internal/nn"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

func TestLinear_Forward(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewLinear(3, 2, backend)

	// Overwrite the random initialization with known values.
	copy(layer.Weight().Tensor().Raw().AsFloat32(), []float32{
		1, 0, 0,
		0, 1, 1,
	})
	copy(layer.Bias().Tensor().Raw().AsFloat32(), []float32{10, 20})

	input, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{1, 3}, backend)
	require.NoError(t, err)

	out := layer.Forward(input)
	assert.Equal(t, tensor.Shape{1, 2}, out.Shape())
	assert.InDelta(t, 11, out.Raw().AsFloat32()[0], 1e-5) // 1 + 10
	assert.InDelta(t, 25, out.Raw().AsFloat32()[1], 1e-5) // 2 + 3 + 20

	assert.Len(t, layer.Parameters(), 2)
}

func TestConv2D_ForwardShape(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewConv2D(1, 6, 5, 1, 0, backend)

	input, err := tensor.FromSlice(make([]float32, 2*28*28), tensor.Shape{2, 1, 28, 28}, backend)
	require.NoError(t, err)

	out := layer.Forward(input)
	assert.Equal(t, tensor.Shape{2, 6, 24, 24}, out.Shape())
	assert.Len(t, layer.Parameters(), 2)
}

func TestFlatten(t *testing.T) {
	backend := cpu.New()
	layer := nn.NewFlatten[*cpu.CPUBackend]()

	input, err := tensor.FromSlice(make([]float32, 2*16), tensor.Shape{2, 4, 2, 2}, backend)
	require.NoError(t, err)

	out := layer.Forward(input)
	assert.Equal(t, tensor.Shape{2, 16}, out.Shape())
	assert.Empty(t, layer.Parameters())
}

func TestSequential(t *testing.T) {
	backend := cpu.New()
	model := nn.NewSequential[*cpu.CPUBackend](
		nn.NewLinear(4, 8, backend),
		nn.NewLinear(8, 2, backend),
	)

	input, err := tensor.FromSlice(make([]float32, 4), tensor.Shape{1, 4}, backend)
	require.NoError(t, err)

	out := model.Forward(input)
	assert.Equal(t, tensor.Shape{1, 2}, out.Shape())
	assert.Len(t, model.Parameters(), 4)
}

func TestCrossEntropyLoss(t *testing.T) {
	backend := cpu.New()
	criterion := nn.NewCrossEntropyLoss(backend)

	logits, err := tensor.FromSlice([]float32{10, 0, 0, 10}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	targets, err := tensor.FromSlice([]int64{0, 1}, tensor.Shape{2}, backend)
	require.NoError(t, err)

	loss := criterion.Forward(logits, targets)
	// Confident correct predictions give near-zero loss.
	assert.InDelta(t, 0, loss.Raw().AsFloat32()[0], 1e-3)

	assert.InDelta(t, 1.0, nn.Accuracy(logits, targets), 1e-6)

	wrong, err := tensor.FromSlice([]int64{1, 0}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, nn.Accuracy(logits, wrong), 1e-6)
}
