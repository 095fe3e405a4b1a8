package nn

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// Flatten collapses all dimensions after the batch dimension, turning
// [N, C, H, W] feature maps into [N, C*H*W] vectors ahead of fully
// connected layers.
type Flatten[B tensor.Backend] struct{}

// NewFlatten creates a Flatten module.
func NewFlatten[B tensor.Backend]() *Flatten[B] {
	return &Flatten[B]{}
}

// Forward reshapes the input to [batch, rest]. The reshape goes through the
// backend so gradients flow back to the unflattened tensor.
func (f *Flatten[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("flatten: expected at least 2D input, got shape %v", shape))
	}

	rest := 1
	for _, d := range shape[1:] {
		rest *= d
	}
	return input.Reshape(shape[0], rest)
}

// Parameters returns an empty slice.
func (f *Flatten[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{}
}
