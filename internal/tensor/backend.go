package tensor

// Backend defines the interface that compute backends must implement.
// Backends perform the actual computation for tensor operations; the
// autodiff package decorates a Backend with gradient recording.
type Backend interface {
	// Element-wise binary operations with broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// Matrix operations.
	MatMul(a, b *RawTensor) *RawTensor

	// Convolutional operations (NCHW layout).
	Conv2D(input, kernel *RawTensor, stride, padding int) *RawTensor
	Conv2DBackward(input, kernel, outputGrad *RawTensor, stride, padding int) (gradInput, gradKernel *RawTensor)
	MaxPool2D(input *RawTensor, kernelSize, stride int) *RawTensor
	MaxPool2DBackward(input, outputGrad *RawTensor, maxIndices []int) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Scalar operations.
	MulScalar(x *RawTensor, scalar float64) *RawTensor
	AddScalar(x *RawTensor, scalar float64) *RawTensor

	// Reductions.
	Sum(x *RawTensor) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
