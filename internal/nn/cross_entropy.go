package nn

import (
	"math"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// CrossEntropyLoss computes mean softmax cross-entropy for multi-class
// classification. It expects raw logits; the log-sum-exp trick keeps the
// computation stable for large or very negative logits.
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates a new cross-entropy loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{backend: backend}
}

// Forward computes the mean loss over the batch.
//
//   - logits: [batch, classes] float32
//   - targets: [batch] int64 class indices
//
// With an autodiff-aware backend the operation is recorded on the tape.
func (c *CrossEntropyLoss[B]) Forward(
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int64, B],
) *tensor.Tensor[float32, B] {
	type crossEntropyBackend interface {
		CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
	}

	if adBackend, ok := any(c.backend).(crossEntropyBackend); ok {
		resultRaw := adBackend.CrossEntropy(logits.Raw(), targets.Raw())
		return tensor.New[float32, B](resultRaw, c.backend)
	}

	// Plain backend: compute the value without gradient tracking.
	shape := logits.Shape()
	if len(shape) != 2 {
		panic("cross-entropy: logits must be 2D [batch, classes]")
	}
	batch, classes := shape[0], shape[1]

	logitsData := logits.Raw().AsFloat32()
	targetsData := targets.Raw().AsInt64()
	if len(targetsData) != batch {
		panic("cross-entropy: targets must have shape [batch]")
	}

	var total float64
	for bi := 0; bi < batch; bi++ {
		row := logitsData[bi*classes : (bi+1)*classes]
		logProbs := logSoftmax(row)

		t := int(targetsData[bi])
		if t < 0 || t >= classes {
			panic("cross-entropy: target index out of bounds")
		}
		total -= float64(logProbs[t])
	}

	lossRaw, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, c.backend.Device())
	if err != nil {
		panic(err)
	}
	lossRaw.AsFloat32()[0] = float32(total / float64(batch))
	return tensor.New[float32, B](lossRaw, c.backend)
}

// Parameters returns nil; loss functions have no trainable parameters.
func (c *CrossEntropyLoss[B]) Parameters() []*Parameter[B] {
	return nil
}

// logSoftmax computes log(softmax(z)) via the log-sum-exp trick.
func logSoftmax(z []float32) []float32 {
	result := make([]float32, len(z))

	maxZ := z[0]
	for _, v := range z[1:] {
		if v > maxZ {
			maxZ = v
		}
	}

	var sumExp float64
	for _, v := range z {
		sumExp += math.Exp(float64(v - maxZ))
	}
	logSumExp := maxZ + float32(math.Log(sumExp))

	for i, v := range z {
		result[i] = v - logSumExp
	}
	return result
}

// Accuracy computes the fraction of samples whose argmax prediction matches
// the target class.
func Accuracy[B tensor.Backend](
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int64, B],
) float32 {
	shape := logits.Shape()
	batch, classes := shape[0], shape[1]

	logitsData := logits.Raw().AsFloat32()
	targetsData := targets.Raw().AsInt64()

	correct := 0
	for bi := 0; bi < batch; bi++ {
		row := logitsData[bi*classes : (bi+1)*classes]
		predicted := 0
		for j := 1; j < classes; j++ {
			if row[j] > row[predicted] {
				predicted = j
			}
		}
		if predicted == int(targetsData[bi]) {
			correct++
		}
	}

	return float32(correct) / float32(batch)
}
