package ops

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// unbroadcast reduces a gradient computed in a broadcast output shape back
// to the shape of the original operand by summing over the broadcast
// dimensions.
func unbroadcast(grad *tensor.RawTensor, shape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(shape) {
		return grad
	}

	out, err := tensor.NewRaw(shape, grad.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("unbroadcast: %v", err))
	}

	gradShape := grad.Shape()

	// Align the target shape to the gradient's rank with leading 1s.
	aligned := make(tensor.Shape, len(gradShape))
	for i := range aligned {
		aligned[i] = 1
	}
	copy(aligned[len(gradShape)-len(shape):], shape)

	inStrides := aligned.ComputeStrides()
	outStrides := gradShape.ComputeStrides()

	gd := grad.AsFloat32()
	od := out.AsFloat32()
	for flat, g := range gd {
		rem := flat
		in := 0
		for d := 0; d < len(gradShape); d++ {
			coord := rem / outStrides[d]
			rem %= outStrides[d]
			if aligned[d] != 1 {
				in += coord * inStrides[d]
			}
		}
		od[in] += g
	}

	return out
}

// zerosLike allocates a zero gradient with the same shape and dtype as t.
func zerosLike(t *tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor {
	out, err := tensor.NewRaw(t.Shape(), t.DType(), backend.Device())
	if err != nil {
		panic(fmt.Sprintf("zerosLike: %v", err))
	}
	return out
}

// scalarValue reads the single element of a scalar gradient tensor.
func scalarValue(t *tensor.RawTensor) float32 {
	if t.NumElements() != 1 {
		panic(fmt.Sprintf("expected scalar tensor, got shape %v", t.Shape()))
	}
	return t.AsFloat32()[0]
}
