// Copyright 2026 The DeepSplines Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the neural network layers of the DeepSplines engine:
// standard layers (Linear, Conv2D, MaxPool2D, Flatten, Sequential), the
// learnable SplineActivation layer and the ActivationManager that
// partitions parameters and runs the sparsification pass.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	manager := nn.NewActivationManager(backend)
//
//	act, _ := nn.NewSplineActivation(spline.Options{
//	    Mode:     spline.ModeFC,
//	    Channels: 128,
//	    Range:    4,
//	    Step:     0.5,
//	    Init:     spline.InitLeakyReLU,
//	}, backend)
//	manager.Register(act)
//
//	model := nn.NewSequential[*autodiff.Backend[*cpu.Backend]](
//	    nn.NewLinear(784, 128, backend),
//	    act,
//	    nn.NewLinear(128, 10, backend),
//	)
package nn

import (
	"github.com/rohanarrancherry/DeepSplines/internal/nn"
	"github.com/rohanarrancherry/DeepSplines/internal/spline"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// Module is the base interface for all neural network components.
type Module[B tensor.Backend] = nn.Module[B]

// Parameter represents a trainable parameter.
type Parameter[B tensor.Backend] = nn.Parameter[B]

// NewParameter creates a new trainable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return nn.NewParameter(name, t)
}

// Layers

// Linear is a fully connected layer.
type Linear[B tensor.Backend] = nn.Linear[B]

// NewLinear creates a new linear layer with Xavier initialization.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return nn.NewLinear(inFeatures, outFeatures, backend)
}

// Conv2D is a 2D convolutional layer.
type Conv2D[B tensor.Backend] = nn.Conv2D[B]

// NewConv2D creates a square-kernel 2D convolutional layer.
func NewConv2D[B tensor.Backend](inChannels, outChannels, kernelSize, stride, padding int, backend B) *Conv2D[B] {
	return nn.NewConv2D(inChannels, outChannels, kernelSize, stride, padding, backend)
}

// MaxPool2D is a 2D max pooling layer.
type MaxPool2D[B tensor.Backend] = nn.MaxPool2D[B]

// NewMaxPool2D creates a 2D max pooling layer.
func NewMaxPool2D[B tensor.Backend](kernelSize, stride int, backend B) *MaxPool2D[B] {
	return nn.NewMaxPool2D(kernelSize, stride, backend)
}

// Flatten collapses all dimensions after the batch dimension.
type Flatten[B tensor.Backend] = nn.Flatten[B]

// NewFlatten creates a Flatten module.
func NewFlatten[B tensor.Backend]() *Flatten[B] {
	return nn.NewFlatten[B]()
}

// Sequential chains modules.
type Sequential[B tensor.Backend] = nn.Sequential[B]

// NewSequential creates a new Sequential container.
func NewSequential[B tensor.Backend](modules ...Module[B]) *Sequential[B] {
	return nn.NewSequential(modules...)
}

// Spline activations

// SplineActivation is a learnable piecewise-linear activation layer.
type SplineActivation[B tensor.Backend] = nn.SplineActivation[B]

// NewSplineActivation creates a spline activation layer.
func NewSplineActivation[B tensor.Backend](opts spline.Options, backend B) (*SplineActivation[B], error) {
	return nn.NewSplineActivation(opts, backend)
}

// SplineBackend is implemented by autodiff-aware backends that evaluate
// spline activations with gradient recording.
type SplineBackend = nn.SplineBackend

// ActivationManager tracks the spline activation layers of a model.
type ActivationManager[B tensor.Backend] = nn.ActivationManager[B]

// NewActivationManager creates an empty manager.
func NewActivationManager[B tensor.Backend](backend B) *ActivationManager[B] {
	return nn.NewActivationManager(backend)
}

// ErrNotRegistered is returned when a manager operation requires registered
// spline activations and none exist.
var ErrNotRegistered = nn.ErrNotRegistered

// Loss and metrics

// CrossEntropyLoss computes mean softmax cross-entropy.
type CrossEntropyLoss[B tensor.Backend] = nn.CrossEntropyLoss[B]

// NewCrossEntropyLoss creates a new cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return nn.NewCrossEntropyLoss(backend)
}

// Accuracy computes the fraction of argmax predictions matching the target
// classes.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int64, B]) float32 {
	return nn.Accuracy(logits, targets)
}

// Initialization helpers

// Xavier initializes weights from the Glorot uniform distribution.
func Xavier[B tensor.Backend](fanIn, fanOut int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Xavier(fanIn, fanOut, shape, backend)
}

// KaimingHe initializes weights from N(0, sqrt(2/fanIn)).
func KaimingHe[B tensor.Backend](fanIn int, shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.KaimingHe(fanIn, shape, backend)
}

// Zeros creates a zero-filled tensor.
func Zeros[B tensor.Backend](shape tensor.Shape, backend B) *tensor.Tensor[float32, B] {
	return nn.Zeros(shape, backend)
}
