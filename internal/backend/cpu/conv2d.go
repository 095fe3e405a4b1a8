package cpu

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// Conv2D performs 2D convolution in NCHW layout.
//
// Input:  [N, Cin, H, W]
// Kernel: [Cout, Cin, KH, KW]
// Output: [N, Cout, (H+2P-KH)/S+1, (W+2P-KW)/S+1]
func (b *CPUBackend) Conv2D(input, kernel *tensor.RawTensor, stride, padding int) *tensor.RawTensor {
	is, ks := input.Shape(), kernel.Shape()
	if len(is) != 4 || len(ks) != 4 {
		panic(fmt.Sprintf("Conv2D: expected 4D input and kernel, got %v, %v", is, ks))
	}
	if is[1] != ks[1] {
		panic(fmt.Sprintf("Conv2D: input channels %d != kernel channels %d", is[1], ks[1]))
	}
	if input.DType() != tensor.Float32 {
		panic("Conv2D: only float32 is supported")
	}

	n, cin, h, w := is[0], is[1], is[2], is[3]
	cout, kh, kw := ks[0], ks[2], ks[3]
	hOut := (h+2*padding-kh)/stride + 1
	wOut := (w+2*padding-kw)/stride + 1

	out, err := tensor.NewRaw(tensor.Shape{n, cout, hOut, wOut}, tensor.Float32, b.Device())
	if err != nil {
		panic(fmt.Sprintf("Conv2D: %v", err))
	}

	id, kd, od := input.AsFloat32(), kernel.AsFloat32(), out.AsFloat32()

	for bi := 0; bi < n; bi++ {
		for co := 0; co < cout; co++ {
			for oh := 0; oh < hOut; oh++ {
				for ow := 0; ow < wOut; ow++ {
					var acc float32
					for ci := 0; ci < cin; ci++ {
						for fh := 0; fh < kh; fh++ {
							ih := oh*stride + fh - padding
							if ih < 0 || ih >= h {
								continue
							}
							for fw := 0; fw < kw; fw++ {
								iw := ow*stride + fw - padding
								if iw < 0 || iw >= w {
									continue
								}
								acc += id[((bi*cin+ci)*h+ih)*w+iw] * kd[((co*cin+ci)*kh+fh)*kw+fw]
							}
						}
					}
					od[((bi*cout+co)*hOut+oh)*wOut+ow] = acc
				}
			}
		}
	}

	return out
}
