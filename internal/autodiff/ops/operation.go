// Package ops defines the differentiable operations recorded on the
// gradient tape. Each operation stores its forward inputs and output and
// knows how to turn an output gradient into input gradients.
//
// The spline evaluation operation and the regularization operations use
// explicit index-and-weight scatter-add rules rather than composing
// primitive ops; their gradient contracts are part of the activation
// engine's design.
package ops

import "github.com/rohanarrancherry/DeepSplines/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for the inputs given the output gradient.
	// The returned slice corresponds position-wise to Inputs().
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the input tensors of this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}
