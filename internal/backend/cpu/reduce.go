package cpu

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// Sum reduces the tensor to a single-element tensor holding the total sum.
func (b *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	out, err := tensor.NewRaw(tensor.Shape{1}, x.DType(), b.Device())
	if err != nil {
		panic(fmt.Sprintf("Sum: %v", err))
	}

	switch x.DType() {
	case tensor.Float32:
		var total float32
		for _, v := range x.AsFloat32() {
			total += v
		}
		out.AsFloat32()[0] = total
	case tensor.Float64:
		var total float64
		for _, v := range x.AsFloat64() {
			total += v
		}
		out.AsFloat64()[0] = total
	default:
		panic(fmt.Sprintf("Sum: unsupported dtype %s", x.DType()))
	}

	return out
}
