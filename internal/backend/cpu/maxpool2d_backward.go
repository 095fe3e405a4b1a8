package cpu

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// MaxPool2DBackward routes output gradients back to the input positions
// that held the max value during the forward pass. maxIndices holds, for
// each output element, the flat input index of its max.
func (b *CPUBackend) MaxPool2DBackward(input, outputGrad *tensor.RawTensor, maxIndices []int) *tensor.RawTensor {
	gradInput, err := tensor.NewRaw(input.Shape(), tensor.Float32, b.Device())
	if err != nil {
		panic(fmt.Sprintf("MaxPool2DBackward: %v", err))
	}

	gd := outputGrad.AsFloat32()
	if len(gd) != len(maxIndices) {
		panic(fmt.Sprintf("MaxPool2DBackward: %d gradients for %d max indices", len(gd), len(maxIndices)))
	}

	gid := gradInput.AsFloat32()
	for i, g := range gd {
		gid[maxIndices[i]] += g
	}

	return gradInput
}
