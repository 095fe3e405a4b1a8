package nn

import (
	"fmt"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// Conv2D is a 2D convolutional layer: output = Conv2D(input, weight) + bias.
//
//	Input:  [batch, inChannels, height, width]
//	Weight: [outChannels, inChannels, kernel, kernel]
//	Bias:   [outChannels]
//	Output: [batch, outChannels, outH, outW]
//
// where outH = (height + 2*padding - kernel)/stride + 1 and likewise for
// outW.
type Conv2D[B tensor.Backend] struct {
	inChannels  int
	outChannels int
	kernelSize  int
	stride      int
	padding     int

	weight *Parameter[B]
	bias   *Parameter[B]

	backend B
}

// NewConv2D creates a square-kernel 2D convolution with Xavier-initialized
// weights and zero biases.
func NewConv2D[B tensor.Backend](inChannels, outChannels, kernelSize, stride, padding int, backend B) *Conv2D[B] {
	if inChannels <= 0 || outChannels <= 0 {
		panic(fmt.Sprintf("conv2d: invalid channels in=%d, out=%d", inChannels, outChannels))
	}
	if kernelSize <= 0 {
		panic(fmt.Sprintf("conv2d: invalid kernel size %d", kernelSize))
	}
	if stride <= 0 {
		panic(fmt.Sprintf("conv2d: invalid stride %d", stride))
	}
	if padding < 0 {
		panic(fmt.Sprintf("conv2d: invalid padding %d", padding))
	}

	fanIn := inChannels * kernelSize * kernelSize
	fanOut := outChannels * kernelSize * kernelSize
	weightShape := tensor.Shape{outChannels, inChannels, kernelSize, kernelSize}

	return &Conv2D[B]{
		inChannels:  inChannels,
		outChannels: outChannels,
		kernelSize:  kernelSize,
		stride:      stride,
		padding:     padding,
		weight:      NewParameter("conv2d.weight", Xavier(fanIn, fanOut, weightShape, backend)),
		bias:        NewParameter("conv2d.bias", Zeros(tensor.Shape{outChannels}, backend)),
		backend:     backend,
	}
}

// Forward performs the convolution.
//
// Input: [batch, inChannels, H, W]. Output: [batch, outChannels, outH, outW].
func (c *Conv2D[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	inputShape := input.Shape()
	if len(inputShape) != 4 {
		panic(fmt.Sprintf("conv2d: expected 4D input [N,C,H,W], got %dD", len(inputShape)))
	}
	if inputShape[1] != c.inChannels {
		panic(fmt.Sprintf("conv2d: input channels %d != expected %d", inputShape[1], c.inChannels))
	}

	outputRaw := c.backend.Conv2D(input.Raw(), c.weight.Tensor().Raw(), c.stride, c.padding)
	output := tensor.New[float32, B](outputRaw, c.backend)

	// Bias is [outChannels]; view it as [1, C, 1, 1] so the add broadcasts
	// over batch and spatial dimensions and stays on the tape.
	biasReshaped := c.bias.Tensor().Reshape(1, c.outChannels, 1, 1)
	return output.Add(biasReshaped)
}

// Parameters returns [weight, bias].
func (c *Conv2D[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{c.weight, c.bias}
}

// OutChannels returns the number of output channels.
func (c *Conv2D[B]) OutChannels() int { return c.outChannels }

// String describes the layer configuration.
func (c *Conv2D[B]) String() string {
	return fmt.Sprintf("Conv2D(in=%d, out=%d, kernel=%d, stride=%d, padding=%d)",
		c.inChannels, c.outChannels, c.kernelSize, c.stride, c.padding)
}
