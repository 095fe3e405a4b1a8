package cpu

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (b *CPUBackend) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	xs, ys := x.Shape(), y.Shape()
	if len(xs) != 2 || len(ys) != 2 {
		panic(fmt.Sprintf("MatMul: expected 2D tensors, got %v @ %v", xs, ys))
	}
	if xs[1] != ys[0] {
		panic(fmt.Sprintf("MatMul: inner dimensions mismatch %v @ %v", xs, ys))
	}
	if x.DType() != tensor.Float32 || y.DType() != tensor.Float32 {
		panic("MatMul: only float32 is supported")
	}

	m, k, n := xs[0], xs[1], ys[1]
	out, err := tensor.NewRaw(tensor.Shape{m, n}, tensor.Float32, b.Device())
	if err != nil {
		panic(fmt.Sprintf("MatMul: %v", err))
	}

	xd, yd, od := x.AsFloat32(), y.AsFloat32(), out.AsFloat32()
	for i := 0; i < m; i++ {
		xRow := xd[i*k : (i+1)*k]
		oRow := od[i*n : (i+1)*n]
		for p := 0; p < k; p++ {
			a := xRow[p]
			if a == 0 {
				continue
			}
			yRow := yd[p*n : (p+1)*n]
			for j := 0; j < n; j++ {
				oRow[j] += a * yRow[j]
			}
		}
	}

	return out
}
