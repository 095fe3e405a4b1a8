// Package autodiff implements automatic differentiation using the decorator
// pattern.
//
// AutodiffBackend wraps any Backend implementation and adds gradient
// tracking through a GradientTape:
//   - every tensor operation runs on the wrapped backend, then is recorded
//     as an ops.Operation when the tape is live
//   - reverse-mode AD walks the tape backwards, applying each operation's
//     gradient rule and accumulating per-tensor gradients
//
// Beyond the generic tensor operations it carries the activation engine's
// domain operations: spline evaluation with its scatter-add coefficient
// gradient, the TV and BV regularization penalties, the L2 penalty used for
// weight decay, and cross-entropy loss.
package autodiff

import (
	"github.com/rohanarrancherry/DeepSplines/internal/autodiff/ops"
	"github.com/rohanarrancherry/DeepSplines/internal/spline"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// AutodiffBackend wraps a Backend and adds automatic differentiation.
// It implements the tensor.Backend interface and records operations in a
// GradientTape.
type AutodiffBackend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates a new AutodiffBackend wrapping the given backend.
func New[B tensor.Backend](backend B) *AutodiffBackend[B] {
	return &AutodiffBackend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for manual control: starting and stopping
// recording, clearing between iterations, inspecting recorded operations.
func (b *AutodiffBackend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend for direct access.
func (b *AutodiffBackend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *AutodiffBackend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device.
func (b *AutodiffBackend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records the operation.
func (b *AutodiffBackend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(x, y)
	b.tape.Record(ops.NewAddOp(x, y, result))
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *AutodiffBackend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(x, y)
	b.tape.Record(ops.NewSubOp(x, y, result))
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *AutodiffBackend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(x, y)
	b.tape.Record(ops.NewMulOp(x, y, result))
	return result
}

// Div performs element-wise division and records the operation.
func (b *AutodiffBackend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Div(x, y)
	b.tape.Record(ops.NewDivOp(x, y, result))
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *AutodiffBackend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(x, y)
	b.tape.Record(ops.NewMatMulOp(x, y, result))
	return result
}

// Reshape reshapes a tensor and records the operation. Recording matters:
// parameters reshaped for broadcasting would otherwise never receive
// gradients.
func (b *AutodiffBackend[B]) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(t, newShape)
	b.tape.Record(ops.NewReshapeOp(t, result))
	return result
}

// Transpose permutes dimensions and records the operation. The backend
// materializes a new tensor for transposes, so without recording, gradients
// computed for the transposed view would never reach the original
// parameter.
func (b *AutodiffBackend[B]) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	ndim := len(t.Shape())
	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}

	result := b.inner.Transpose(t, axes...)
	b.tape.Record(ops.NewTransposeOp(t, result, axes))
	return result
}

// MulScalar multiplies by a constant and records the operation.
func (b *AutodiffBackend[B]) MulScalar(t *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := b.inner.MulScalar(t, scalar)
	b.tape.Record(ops.NewMulScalarOp(t, result, scalar))
	return result
}

// AddScalar adds a constant and records the operation.
func (b *AutodiffBackend[B]) AddScalar(t *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	result := b.inner.AddScalar(t, scalar)
	b.tape.Record(ops.NewAddScalarOp(t, result))
	return result
}

// Sum reduces to a single element and records the operation.
func (b *AutodiffBackend[B]) Sum(t *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sum(t)
	b.tape.Record(ops.NewSumOp(t, result))
	return result
}

// Conv2D performs 2D convolution and records the operation.
func (b *AutodiffBackend[B]) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	result := b.inner.Conv2D(input, kernel, stride, padding)
	b.tape.Record(ops.NewConv2DOp(input, kernel, result, stride, padding))
	return result
}

// Conv2DBackward delegates to the wrapped backend. Gradient kernels are
// never themselves differentiated.
func (b *AutodiffBackend[B]) Conv2DBackward(input, kernel, outputGrad *tensor.RawTensor, stride, padding int) (*tensor.RawTensor, *tensor.RawTensor) {
	return b.inner.Conv2DBackward(input, kernel, outputGrad, stride, padding)
}

// MaxPool2D performs 2D max pooling and records the operation. The
// operation stores max indices during the forward pass so the backward pass
// routes gradients only to the winning positions.
func (b *AutodiffBackend[B]) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	result := b.inner.MaxPool2D(input, kernelSize, stride)
	b.tape.Record(ops.NewMaxPool2DOp(input, result, kernelSize, stride))
	return result
}

// MaxPool2DBackward delegates to the wrapped backend.
func (b *AutodiffBackend[B]) MaxPool2DBackward(input, outputGrad *tensor.RawTensor, maxIndices []int) *tensor.RawTensor {
	return b.inner.MaxPool2DBackward(input, outputGrad, maxIndices)
}

// Spline evaluates per-channel piecewise-linear activation functions and
// records the operation. The backward pass scatter-adds interpolation
// weights into the coefficient gradient, so every input element contributes
// to exactly the two coefficients that shaped its output.
func (b *AutodiffBackend[B]) Spline(input, coeffs *tensor.RawTensor, grid *spline.Grid, channels int) *tensor.RawTensor {
	op := ops.NewSplineOp(input, coeffs, grid, channels, b.Device())
	b.tape.Record(op)
	return op.Output()
}

// TV computes the weighted total-variation penalty of a coefficient matrix
// and records the operation. It returns the penalty tensor together with
// the unweighted value, which callers use to monitor spline sparsity.
func (b *AutodiffBackend[B]) TV(coeffs *tensor.RawTensor, channels int, weight float64) (*tensor.RawTensor, float64) {
	op := ops.NewTVOp(coeffs, channels, weight, b.Device())
	b.tape.Record(op)
	return op.Output(), op.Unweighted()
}

// BV computes the weighted bounded-variation penalty of a coefficient
// matrix and records the operation.
func (b *AutodiffBackend[B]) BV(coeffs *tensor.RawTensor, channels int, weight float64) (*tensor.RawTensor, float64) {
	op := ops.NewBVOp(coeffs, channels, weight, b.Device())
	b.tape.Record(op)
	return op.Output(), op.Unweighted()
}

// SumSquares computes weight * sum(t²) and records the operation. Used for
// explicit weight decay on main network parameters.
func (b *AutodiffBackend[B]) SumSquares(t *tensor.RawTensor, weight float64) *tensor.RawTensor {
	op := ops.NewSumSquaresOp(t, weight, b.Device())
	b.tape.Record(op)
	return op.Output()
}

// CrossEntropy computes mean softmax cross-entropy loss and records the
// operation.
//
// logits is [batch, classes] float32; targets is [batch] int64 class
// indices.
func (b *AutodiffBackend[B]) CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor {
	op := ops.NewCrossEntropyOp(logits, targets, b.Device())
	b.tape.Record(op)
	return op.Output()
}
