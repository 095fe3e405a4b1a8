package ops

import "github.com/rohanarrancherry/DeepSplines/internal/tensor"

// MaxPool2DOp records a max pooling operation. The forward pass stores,
// for each output element, the flat input index that held the max, so the
// backward pass can route gradients to exactly those positions.
type MaxPool2DOp struct {
	input, output *tensor.RawTensor
	maxIndices    []int
}

// NewMaxPool2DOp creates a new MaxPool2DOp, computing the max indices for
// gradient routing.
func NewMaxPool2DOp(input, output *tensor.RawTensor, kernelSize, stride int) *MaxPool2DOp {
	return &MaxPool2DOp{
		input:      input,
		output:     output,
		maxIndices: computeMaxIndices(input, output, kernelSize, stride),
	}
}

func computeMaxIndices(input, output *tensor.RawTensor, kernelSize, stride int) []int {
	is, os := input.Shape(), output.Shape()
	n, c, h, w := is[0], is[1], is[2], is[3]
	hOut, wOut := os[2], os[3]

	id := input.AsFloat32()
	maxIndices := make([]int, n*c*hOut*wOut)

	outIdx := 0
	for bi := 0; bi < n; bi++ {
		for ci := 0; ci < c; ci++ {
			for oh := 0; oh < hOut; oh++ {
				for ow := 0; ow < wOut; ow++ {
					maxVal := float32(-3.4e38)
					maxPos := 0
					for fh := 0; fh < kernelSize; fh++ {
						for fw := 0; fw < kernelSize; fw++ {
							idx := ((bi*c+ci)*h+oh*stride+fh)*w + ow*stride + fw
							if id[idx] > maxVal {
								maxVal = id[idx]
								maxPos = idx
							}
						}
					}
					maxIndices[outIdx] = maxPos
					outIdx++
				}
			}
		}
	}

	return maxIndices
}

// Backward routes gradients to the max positions.
func (op *MaxPool2DOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	return []*tensor.RawTensor{backend.MaxPool2DBackward(op.input, outputGrad, op.maxIndices)}
}

// Inputs returns the pooled tensor.
func (op *MaxPool2DOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }

// Output returns the pooling result.
func (op *MaxPool2DOp) Output() *tensor.RawTensor { return op.output }
