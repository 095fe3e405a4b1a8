package cpu

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// Conv2DBackward computes input and kernel gradients for Conv2D.
//
// For every output position the forward pass accumulated
// input[ih,iw] * kernel[fh,fw]; the backward pass distributes the output
// gradient back along the same index walk.
func (b *CPUBackend) Conv2DBackward(
	input, kernel, outputGrad *tensor.RawTensor,
	stride, padding int,
) (*tensor.RawTensor, *tensor.RawTensor) {
	is, ks, os := input.Shape(), kernel.Shape(), outputGrad.Shape()
	n, cin, h, w := is[0], is[1], is[2], is[3]
	cout, kh, kw := ks[0], ks[2], ks[3]
	hOut, wOut := os[2], os[3]

	gradInput, err := tensor.NewRaw(is, tensor.Float32, b.Device())
	if err != nil {
		panic(fmt.Sprintf("Conv2DBackward: %v", err))
	}
	gradKernel, err := tensor.NewRaw(ks, tensor.Float32, b.Device())
	if err != nil {
		panic(fmt.Sprintf("Conv2DBackward: %v", err))
	}

	id := input.AsFloat32()
	kd := kernel.AsFloat32()
	gd := outputGrad.AsFloat32()
	gid := gradInput.AsFloat32()
	gkd := gradKernel.AsFloat32()

	for bi := 0; bi < n; bi++ {
		for co := 0; co < cout; co++ {
			for oh := 0; oh < hOut; oh++ {
				for ow := 0; ow < wOut; ow++ {
					g := gd[((bi*cout+co)*hOut+oh)*wOut+ow]
					if g == 0 {
						continue
					}
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
								inIdx := ((bi*cin+ci)*h+ih)*w + iw
								kIdx := ((co*cin+ci)*kh+fh)*kw + fw
								gid[inIdx] += g * kd[kIdx]
								gkd[kIdx] += g * id[inIdx]
							}
						}
					}
				}
			}
		}
	}

	return gradInput, gradKernel
}
