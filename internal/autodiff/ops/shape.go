package ops

import "github.com/rohanarrancherry/DeepSplines/internal/tensor"

// ReshapeOp records a reshape. Reshape must be on the tape: parameters
// reshaped for broadcasting (e.g. a conv bias viewed as [1, C, 1, 1])
// would otherwise never receive gradients.
type ReshapeOp struct {
	input, output *tensor.RawTensor
}

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(input, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{input: input, output: output}
}

// Backward reshapes the output gradient back to the input's shape.
func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.Reshape(outputGrad, op.input.Shape())}
}

// Inputs returns the reshaped tensor.
func (op *ReshapeOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the reshape result.
func (op *ReshapeOp) Output() *tensor.RawTensor { return op.output }

// TransposeOp records a dimension permutation. The backend materializes a
// new tensor for transposes, so the operation must be recorded for
// gradients to flow back to the original tensor.
type TransposeOp struct {
	input, output *tensor.RawTensor
	axes          []int
}

// NewTransposeOp creates a new TransposeOp.
func NewTransposeOp(input, output *tensor.RawTensor, axes []int) *TransposeOp {
	return &TransposeOp{input: input, output: output, axes: axes}
}

// Backward applies the inverse permutation to the output gradient.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, ax := range op.axes {
		inverse[ax] = i
	}
	return []*tensor.RawTensor{backend.Transpose(outputGrad, inverse...)}
}

// Inputs returns the transposed tensor.
func (op *TransposeOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the transpose result.
func (op *TransposeOp) Output() *tensor.RawTensor { return op.output }

// MulScalarOp records multiplication by a constant scalar.
type MulScalarOp struct {
	input, output *tensor.RawTensor
	scalar        float64
}

// NewMulScalarOp creates a new MulScalarOp.
func NewMulScalarOp(input, output *tensor.RawTensor, scalar float64) *MulScalarOp {
	return &MulScalarOp{input: input, output: output, scalar: scalar}
}

// Backward scales the output gradient by the same constant.
func (op *MulScalarOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(outputGrad, op.scalar)}
}

// Inputs returns the scaled tensor.
func (op *MulScalarOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the scaled result.
func (op *MulScalarOp) Output() *tensor.RawTensor { return op.output }

// AddScalarOp records addition of a constant scalar.
type AddScalarOp struct {
	input, output *tensor.RawTensor
}

// NewAddScalarOp creates a new AddScalarOp.
func NewAddScalarOp(input, output *tensor.RawTensor) *AddScalarOp {
	return &AddScalarOp{input: input, output: output}
}

// Backward passes the output gradient through unchanged.
func (op *AddScalarOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{outputGrad}
}

// Inputs returns the shifted tensor.
func (op *AddScalarOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the shifted result.
func (op *AddScalarOp) Output() *tensor.RawTensor { return op.output }

// SumOp records a full reduction to a single element.
type SumOp struct {
	input, output *tensor.RawTensor
}

// NewSumOp creates a new SumOp.
func NewSumOp(input, output *tensor.RawTensor) *SumOp {
	return &SumOp{input: input, output: output}
}

// Backward broadcasts the scalar output gradient over the input shape.
func (op *SumOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := zerosLike(op.input, backend)
	g := scalarValue(outputGrad)
	gd := grad.AsFloat32()
	for i := range gd {
		gd[i] = g
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns the reduced tensor.
func (op *SumOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the sum.
func (op *SumOp) Output() *tensor.RawTensor { return op.output }
