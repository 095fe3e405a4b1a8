// Package nn implements the neural network modules of the learnable
// activation engine.
//
// Building blocks:
//   - Module interface: base interface for all NN components
//   - Parameter: trainable parameters with gradient tracking
//   - Linear, Conv2D, MaxPool2D, Flatten, Sequential: standard layers
//   - SplineActivation: learnable piecewise-linear activation functions
//   - ActivationManager: registry that partitions parameters into main
//     network weights and spline coefficients, aggregates the TV/BV
//     regularization terms and runs the post-training sparsification pass
//
// Design follows the PyTorch nn.Module shape, adapted for Go generics.
package nn

import (
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// Module is the base interface for all neural network components.
//
// Modules compose into full architectures:
//
//	model := nn.NewSequential(
//	    nn.NewLinear(784, 128, backend),
//	    nn.NewSplineActivation(opts, backend),
//	    nn.NewLinear(128, 10, backend),
//	)
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module,
	// including nested module parameters. Modules without trainable
	// parameters return an empty slice.
	Parameters() []*Parameter[B]
}
