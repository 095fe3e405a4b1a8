package cpu

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// Add performs element-wise addition with broadcasting.
func (b *CPUBackend) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp(x, y, "Add",
		func(a, c float32) float32 { return a + c },
		func(a, c float64) float64 { return a + c })
}

// Sub performs element-wise subtraction with broadcasting.
func (b *CPUBackend) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp(x, y, "Sub",
		func(a, c float32) float32 { return a - c },
		func(a, c float64) float64 { return a - c })
}

// Mul performs element-wise multiplication with broadcasting.
func (b *CPUBackend) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp(x, y, "Mul",
		func(a, c float32) float32 { return a * c },
		func(a, c float64) float64 { return a * c })
}

// Div performs element-wise division with broadcasting.
func (b *CPUBackend) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	return b.binaryOp(x, y, "Div",
		func(a, c float32) float32 { return a / c },
		func(a, c float64) float64 { return a / c })
}

// binaryOp applies an element-wise binary function with NumPy-style
// broadcasting. Both operands must share a dtype.
func (b *CPUBackend) binaryOp(
	x, y *tensor.RawTensor,
	name string,
	f32 func(a, c float32) float32,
	f64 func(a, c float64) float64,
) *tensor.RawTensor {
	if x.DType() != y.DType() {
		panic(fmt.Sprintf("%s: dtype mismatch %s vs %s", name, x.DType(), y.DType()))
	}

	outShape, needsBroadcast, err := tensor.BroadcastShapes(x.Shape(), y.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	out, err := tensor.NewRaw(outShape, x.DType(), b.Device())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	switch x.DType() {
	case tensor.Float32:
		xd, yd, od := x.AsFloat32(), y.AsFloat32(), out.AsFloat32()
		if !needsBroadcast {
			for i := range od {
				od[i] = f32(xd[i], yd[i])
			}
			return out
		}
		xIdx := broadcastIndexer(x.Shape(), outShape)
		yIdx := broadcastIndexer(y.Shape(), outShape)
		for i := range od {
			od[i] = f32(xd[xIdx(i)], yd[yIdx(i)])
		}

	case tensor.Float64:
		xd, yd, od := x.AsFloat64(), y.AsFloat64(), out.AsFloat64()
		if !needsBroadcast {
			for i := range od {
				od[i] = f64(xd[i], yd[i])
			}
			return out
		}
		xIdx := broadcastIndexer(x.Shape(), outShape)
		yIdx := broadcastIndexer(y.Shape(), outShape)
		for i := range od {
			od[i] = f64(xd[xIdx(i)], yd[yIdx(i)])
		}

	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}

	return out
}

// broadcastIndexer returns a function mapping a flat index in outShape to
// the corresponding flat index in inShape, treating size-1 dimensions of
// inShape as broadcast.
func broadcastIndexer(inShape, outShape tensor.Shape) func(int) int {
	// Align inShape to outShape's rank with leading 1s.
	aligned := make(tensor.Shape, len(outShape))
	for i := range aligned {
		aligned[i] = 1
	}
	copy(aligned[len(outShape)-len(inShape):], inShape)

	inStrides := aligned.ComputeStrides()
	outStrides := outShape.ComputeStrides()

	return func(flat int) int {
		in := 0
		rem := flat
		for d := 0; d < len(outShape); d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			if aligned[d] != 1 {
				in += coord * inStrides[d]
			}
		}
		return in
	}
}
