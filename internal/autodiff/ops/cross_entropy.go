package ops

import (
	"fmt"
	"math"

	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// CrossEntropyOp records softmax cross-entropy over a batch of logits,
// averaged across the batch. Softmax probabilities are computed once in the
// forward pass (with the max-subtraction trick for stability) and reused in
// the backward pass, where the gradient is (softmax - onehot) / N.
//
// Targets are class indices and receive no gradient.
type CrossEntropyOp struct {
	logits, targets, output *tensor.RawTensor
	probs                   []float32
}

// NewCrossEntropyOp computes the mean cross-entropy loss.
// logits is [N, classes] float32; targets is [N] int64.
func NewCrossEntropyOp(logits, targets *tensor.RawTensor, device tensor.Device) *CrossEntropyOp {
	ls := logits.Shape()
	if len(ls) != 2 {
		panic(fmt.Sprintf("cross-entropy: expected 2D logits, got %dD", len(ls)))
	}
	n, classes := ls[0], ls[1]
	if targets.NumElements() != n {
		panic(fmt.Sprintf("cross-entropy: %d targets for batch of %d", targets.NumElements(), n))
	}

	ld := logits.AsFloat32()
	td := targets.AsInt64()
	probs := make([]float32, len(ld))

	var loss float64
	for bi := 0; bi < n; bi++ {
		row := ld[bi*classes : (bi+1)*classes]
		out := probs[bi*classes : (bi+1)*classes]

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}

		var sum float64
		for j, v := range row {
			e := math.Exp(float64(v - maxVal))
			out[j] = float32(e)
			sum += e
		}
		inv := float32(1 / sum)
		for j := range out {
			out[j] *= inv
		}

		t := int(td[bi])
		if t < 0 || t >= classes {
			panic(fmt.Sprintf("cross-entropy: target %d out of range [0, %d)", t, classes))
		}
		loss += float64(row[t]-maxVal) - math.Log(sum)
	}

	return &CrossEntropyOp{
		logits:  logits,
		targets: targets,
		output:  scalarTensor(-loss/float64(n), device),
		probs:   probs,
	}
}

// Backward returns (softmax - onehot) / N for the logits and nil for the
// integer targets, which are not differentiated.
func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	ls := op.logits.Shape()
	n, classes := ls[0], ls[1]

	gradLogits := zerosLike(op.logits, backend)
	gd := gradLogits.AsFloat32()
	td := op.targets.AsInt64()

	scale := scalarValue(outputGrad) / float32(n)
	copy(gd, op.probs)
	for bi := 0; bi < n; bi++ {
		gd[bi*classes+int(td[bi])] -= 1
	}
	for i := range gd {
		gd[i] *= scale
	}

	return []*tensor.RawTensor{gradLogits, nil}
}

// Inputs returns [logits, targets].
func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits, op.targets}
}

// Output returns the mean loss.
func (op *CrossEntropyOp) Output() *tensor.RawTensor { return op.output }
