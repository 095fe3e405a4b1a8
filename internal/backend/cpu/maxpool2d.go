package cpu

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// MaxPool2D performs 2D max pooling in NCHW layout.
func (b *CPUBackend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	is := input.Shape()
	if len(is) != 4 {
		panic(fmt.Sprintf("MaxPool2D: expected 4D input, got %v", is))
	}
	if input.DType() != tensor.Float32 {
		panic("MaxPool2D: only float32 is supported")
	}

	n, c, h, w := is[0], is[1], is[2], is[3]
	hOut := (h-kernelSize)/stride + 1
	wOut := (w-kernelSize)/stride + 1

	out, err := tensor.NewRaw(tensor.Shape{n, c, hOut, wOut}, tensor.Float32, b.Device())
	if err != nil {
		panic(fmt.Sprintf("MaxPool2D: %v", err))
	}

	id, od := input.AsFloat32(), out.AsFloat32()
	outIdx := 0
	for bi := 0; bi < n; bi++ {
		for ci := 0; ci < c; ci++ {
			for oh := 0; oh < hOut; oh++ {
				for ow := 0; ow < wOut; ow++ {
					maxVal := float32(-3.4e38)
					for fh := 0; fh < kernelSize; fh++ {
						for fw := 0; fw < kernelSize; fw++ {
							v := id[((bi*c+ci)*h+oh*stride+fh)*w+ow*stride+fw]
							if v > maxVal {
								maxVal = v
							}
						}
					}
					od[outIdx] = maxVal
					outIdx++
				}
			}
		}
	}

	return out
}
