// Copyright 2026 The DeepSplines Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go CPU backend for tensor operations.
//
// The backend implements every operation the engine needs: broadcast-aware
// element-wise arithmetic, matrix multiplication, 2D convolution with its
// gradient kernels, and max pooling. Wrap it with the autodiff package for
// training:
//
//	backend := autodiff.New(cpu.New())
package cpu

import (
	internalcpu "github.com/rohanarrancherry/DeepSplines/internal/backend/cpu"
	"github.com/rohanarrancherry/DeepSplines/tensor"
)

// Backend is the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
func New() *Backend {
	return internalcpu.New()
}
