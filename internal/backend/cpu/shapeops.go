package cpu

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// Reshape returns a copy of the tensor with a new shape.
// The new shape must describe the same number of elements.
func (b *CPUBackend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if newShape.NumElements() != t.NumElements() {
		panic(fmt.Sprintf("Reshape: cannot reshape %v to %v", t.Shape(), newShape))
	}
	return t.Clone().WithShape(newShape)
}

// Transpose permutes the tensor's dimensions, copying the data into a
// contiguous row-major layout. With no axes it reverses all dimensions.
func (b *CPUBackend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("Transpose: expected %d axes, got %d", ndim, len(axes)))
	}

	outShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		if ax < 0 || ax >= ndim {
			panic(fmt.Sprintf("Transpose: axis %d out of range for %dD tensor", ax, ndim))
		}
		outShape[i] = shape[ax]
	}

	out, err := tensor.NewRaw(outShape, t.DType(), b.Device())
	if err != nil {
		panic(fmt.Sprintf("Transpose: %v", err))
	}

	inStrides := shape.ComputeStrides()
	outStrides := outShape.ComputeStrides()

	if t.DType() != tensor.Float32 {
		panic("Transpose: only float32 is supported")
	}

	td, od := t.AsFloat32(), out.AsFloat32()
	for flat := range od {
		rem := flat
		in := 0
		for d := 0; d < ndim; d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			in += coord * inStrides[axes[d]]
		}
		od[flat] = td[in]
	}

	return out
}
