package nn

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// MaxPool2D is a 2D max pooling layer. It has no learnable parameters.
//
//	Input:  [batch, channels, height, width]
//	Output: [batch, channels, (height-kernel)/stride+1, (width-kernel)/stride+1]
type MaxPool2D[B tensor.Backend] struct {
	kernelSize int
	stride     int
	backend    B
}

// NewMaxPool2D creates a 2D max pooling layer. The usual configuration is
// kernelSize=2, stride=2 (halves each spatial dimension).
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int, backend B) *MaxPool2D[B] {
	if kernelSize <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("maxpool2d: invalid stride %d", stride))
	}

	return &MaxPool2D[B]{kernelSize: kernelSize, stride: stride, backend: backend}
}

// Forward performs the pooling.
func (m *MaxPool2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("maxpool2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}

	outputRaw := m.backend.MaxPool2D(input.Raw(), m.kernelSize, m.stride)
	return tensor.New[float32, B](outputRaw, m.backend)
}

// Parameters returns an empty slice; pooling has no trainable parameters.
func (m *MaxPool2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{}
}

// String describes the layer configuration.
func (m *MaxPool2D[B]) String() string {
	return fmt.Sprintf("MaxPool2D(kernel=%d, stride=%d)", m.kernelSize, m.stride)
}
