package ops

import "github.com/rohanarrancherry/DeepSplines/internal/tensor"

// AddOp records element-wise addition: output = a + b.
// Gradients flow unchanged to both operands, reduced over any broadcast
// dimensions.
type AddOp struct {
	a, b, output *tensor.RawTensor
}

// NewAddOp creates a new AddOp.
func NewAddOp(a, b, output *tensor.RawTensor) *AddOp {
	return &AddOp{a: a, b: b, output: output}
}

// Backward computes input gradients for addition.
func (op *AddOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		unbroadcast(outputGrad, op.a.Shape(), backend),
		unbroadcast(outputGrad, op.b.Shape(), backend),
	}
}

// Inputs returns [a, b].
func (op *AddOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }

// Output returns a + b.
func (op *AddOp) Output() *tensor.RawTensor { return op.output }

// SubOp records element-wise subtraction: output = a - b.
type SubOp struct {
	a, b, output *tensor.RawTensor
}

// NewSubOp creates a new SubOp.
func NewSubOp(a, b, output *tensor.RawTensor) *SubOp {
	return &SubOp{a: a, b: b, output: output}
}

// Backward computes input gradients for subtraction.
func (op *SubOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		unbroadcast(outputGrad, op.a.Shape(), backend),
		unbroadcast(backend.MulScalar(outputGrad, -1), op.b.Shape(), backend),
	}
}

// Inputs returns [a, b].
func (op *SubOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }

// Output returns a - b.
func (op *SubOp) Output() *tensor.RawTensor { return op.output }

// MulOp records element-wise multiplication: output = a * b.
type MulOp struct {
	a, b, output *tensor.RawTensor
}

// NewMulOp creates a new MulOp.
func NewMulOp(a, b, output *tensor.RawTensor) *MulOp {
	return &MulOp{a: a, b: b, output: output}
}

// Backward computes input gradients for multiplication:
// d(a*b)/da = b, d(a*b)/db = a.
func (op *MulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{
		unbroadcast(backend.Mul(outputGrad, op.b), op.a.Shape(), backend),
		unbroadcast(backend.Mul(outputGrad, op.a), op.b.Shape(), backend),
	}
}

// Inputs returns [a, b].
func (op *MulOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }

// Output returns a * b.
func (op *MulOp) Output() *tensor.RawTensor { return op.output }

// DivOp records element-wise division: output = a / b.
type DivOp struct {
	a, b, output *tensor.RawTensor
}

// NewDivOp creates a new DivOp.
func NewDivOp(a, b, output *tensor.RawTensor) *DivOp {
	return &DivOp{a: a, b: b, output: output}
}

// Backward computes input gradients for division:
// d(a/b)/da = 1/b, d(a/b)/db = -a/b².
func (op *DivOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradA := backend.Div(outputGrad, op.b)
	bSquared := backend.Mul(op.b, op.b)
	gradB := backend.MulScalar(backend.Div(backend.Mul(outputGrad, op.a), bSquared), -1)
	return []*tensor.RawTensor{
		unbroadcast(gradA, op.a.Shape(), backend),
		unbroadcast(gradB, op.b.Shape(), backend),
	}
}

// Inputs returns [a, b].
func (op *DivOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }

// Output returns a / b.
func (op *DivOp) Output() *tensor.RawTensor { return op.output }

// MatMulOp records matrix multiplication: output = a @ b.
type MatMulOp struct {
	a, b, output *tensor.RawTensor
}

// NewMatMulOp creates a new MatMulOp.
func NewMatMulOp(a, b, output *tensor.RawTensor) *MatMulOp {
	return &MatMulOp{a: a, b: b, output: output}
}

// Backward computes input gradients for matrix multiplication:
// d(A@B)/dA = grad @ Bᵀ, d(A@B)/dB = Aᵀ @ grad.
func (op *MatMulOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	gradA := backend.MatMul(outputGrad, backend.Transpose(op.b))
	gradB := backend.MatMul(backend.Transpose(op.a), outputGrad)
	return []*tensor.RawTensor{gradA, gradB}
}

// Inputs returns [a, b].
func (op *MatMulOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.a, op.b} }

// Output returns a @ b.
func (op *MatMulOp) Output() *tensor.RawTensor { return op.output }
