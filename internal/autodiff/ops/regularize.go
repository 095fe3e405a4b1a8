package ops

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/spline"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// TVOp records the weighted total-variation penalty of a spline
// coefficient matrix. The output is a single-element tensor holding
// weight * sum_c sum_i |c[i+1] - c[i]|; the unweighted value is kept for
// sparsity monitoring.
type TVOp struct {
	coeffs, output *tensor.RawTensor
	grad           []float32
	weight         float64
	unweighted     float64
}

// NewTVOp evaluates the penalty and its subgradient in one pass.
// coeffs is [channels, knots].
func NewTVOp(coeffs *tensor.RawTensor, channels int, weight float64, device tensor.Device) *TVOp {
	knots := coeffsKnots(coeffs, channels)
	value, grad := spline.TV(coeffs.AsFloat32(), channels, knots)

	return &TVOp{
		coeffs:     coeffs,
		output:     scalarTensor(weight*value, device),
		grad:       grad,
		weight:     weight,
		unweighted: value,
	}
}

// Unweighted returns the penalty before the regularization weight is
// applied.
func (op *TVOp) Unweighted() float64 { return op.unweighted }

// Backward scales the stored subgradient by the upstream gradient and the
// regularization weight.
func (op *TVOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{scaledSubgradient(op.coeffs, op.grad, scalarValue(outputGrad)*float32(op.weight), backend)}
}

// Inputs returns the coefficient matrix.
func (op *TVOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.coeffs} }

// Output returns the weighted penalty.
func (op *TVOp) Output() *tensor.RawTensor { return op.output }

// BVOp records the weighted bounded-variation (second difference) penalty
// of a spline coefficient matrix.
type BVOp struct {
	coeffs, output *tensor.RawTensor
	grad           []float32
	weight         float64
	unweighted     float64
}

// NewBVOp evaluates the penalty and its subgradient in one pass.
func NewBVOp(coeffs *tensor.RawTensor, channels int, weight float64, device tensor.Device) *BVOp {
	knots := coeffsKnots(coeffs, channels)
	value, grad := spline.BV(coeffs.AsFloat32(), channels, knots)

	return &BVOp{
		coeffs:     coeffs,
		output:     scalarTensor(weight*value, device),
		grad:       grad,
		weight:     weight,
		unweighted: value,
	}
}

// Unweighted returns the penalty before the regularization weight is
// applied.
func (op *BVOp) Unweighted() float64 { return op.unweighted }

// Backward scales the stored subgradient by the upstream gradient and the
// regularization weight.
func (op *BVOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{scaledSubgradient(op.coeffs, op.grad, scalarValue(outputGrad)*float32(op.weight), backend)}
}

// Inputs returns the coefficient matrix.
func (op *BVOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.coeffs} }

// Output returns the weighted penalty.
func (op *BVOp) Output() *tensor.RawTensor { return op.output }

// SumSquaresOp records weight * sum(x²), the L2 penalty used for weight
// decay on main network parameters.
type SumSquaresOp struct {
	input, output *tensor.RawTensor
	weight        float64
}

// NewSumSquaresOp evaluates the penalty.
func NewSumSquaresOp(input *tensor.RawTensor, weight float64, device tensor.Device) *SumSquaresOp {
	var total float64
	for _, v := range input.AsFloat32() {
		total += float64(v) * float64(v)
	}
	return &SumSquaresOp{input: input, output: scalarTensor(weight * total, device), weight: weight}
}

// Backward computes d(w*sum(x²))/dx = 2*w*x, scaled by the upstream
// gradient.
func (op *SumSquaresOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MulScalar(op.input, 2*op.weight*float64(scalarValue(outputGrad)))}
}

// Inputs returns the penalized tensor.
func (op *SumSquaresOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the weighted penalty.
func (op *SumSquaresOp) Output() *tensor.RawTensor { return op.output }

func coeffsKnots(coeffs *tensor.RawTensor, channels int) int {
	n := coeffs.NumElements()
	if channels <= 0 || n%channels != 0 {
		panic(fmt.Sprintf("regularize: coefficient count %d not divisible by channels %d", n, channels))
	}
	return n / channels
}

func scalarTensor(v float64, device tensor.Device) *tensor.RawTensor {
	out, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, device)
	if err != nil {
		panic(fmt.Sprintf("regularize: %v", err))
	}
	out.AsFloat32()[0] = float32(v)
	return out
}

func scaledSubgradient(like *tensor.RawTensor, subgrad []float32, scale float32, backend tensor.Backend) *tensor.RawTensor {
	grad := zerosLike(like, backend)
	gd := grad.AsFloat32()
	for i, s := range subgrad {
		gd[i] = s * scale
	}
	return grad
}
