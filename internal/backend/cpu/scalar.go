package cpu

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// MulScalar multiplies every element by a scalar.
func (b *CPUBackend) MulScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return b.scalarOp(x, "MulScalar",
		func(v float32) float32 { return v * float32(scalar) },
		func(v float64) float64 { return v * scalar })
}

// AddScalar adds a scalar to every element.
func (b *CPUBackend) AddScalar(x *tensor.RawTensor, scalar float64) *tensor.RawTensor {
	return b.scalarOp(x, "AddScalar",
		func(v float32) float32 { return v + float32(scalar) },
		func(v float64) float64 { return v + scalar })
}

func (b *CPUBackend) scalarOp(
	x *tensor.RawTensor,
	name string,
	f32 func(float32) float32,
	f64 func(float64) float64,
) *tensor.RawTensor {
	out, err := tensor.NewRaw(x.Shape(), x.DType(), b.Device())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	switch x.DType() {
	case tensor.Float32:
		xd, od := x.AsFloat32(), out.AsFloat32()
		for i := range od {
			od[i] = f32(xd[i])
		}
	case tensor.Float64:
		xd, od := x.AsFloat64(), out.AsFloat64()
		for i := range od {
			od[i] = f64(xd[i])
		}
	default:
		panic(fmt.Sprintf("%s: unsupported dtype %s", name, x.DType()))
	}

	return out
}
