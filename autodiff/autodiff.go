// Copyright 2026 The DeepSplines Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides reverse-mode automatic differentiation.
//
// It wraps any backend with a gradient tape that records operations during
// the forward pass, including the engine's custom spline evaluation and
// regularization gradients.
//
// Example:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//
//	output := model.Forward(input)
//	loss := criterion.Forward(output, targets)
//	grads := autodiff.Backward(loss, backend)
package autodiff

import (
	"github.com/rohanarrancherry/DeepSplines/internal/autodiff"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// Backend is the autodiff-enabled backend decorator.
type Backend[B tensor.Backend] = autodiff.AutodiffBackend[B]

// New creates a new autodiff backend wrapping the given backend.
func New[B tensor.Backend](backend B) *Backend[B] {
	return autodiff.New(backend)
}

// GradientTape records operations for automatic differentiation.
type GradientTape = autodiff.GradientTape

// NewGradientTape creates a new gradient tape.
func NewGradientTape() *GradientTape {
	return autodiff.NewGradientTape()
}

// BackwardCapable is a backend that carries a gradient tape.
type BackwardCapable = autodiff.BackwardCapable

// Backward seeds the output with a gradient of ones and walks the tape,
// returning a map from RawTensor to its accumulated gradient.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	return autodiff.Backward(t, backend)
}
