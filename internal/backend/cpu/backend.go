// Package cpu implements a pure-Go CPU backend.
//
// The backend is a single-threaded, synchronous numeric kernel library:
// every operation is a pure function of its inputs and allocates a fresh
// output tensor.
package cpu

import (
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// CPUBackend implements tensor.Backend with pure Go kernels.
type CPUBackend struct{}

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{}
}

// Name returns the backend name.
func (b *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (b *CPUBackend) Device() tensor.Device {
	return tensor.CPU
}
