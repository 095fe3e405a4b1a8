// Package optim implements optimization algorithms and learning rate
// schedules for training networks with learnable spline activations.
//
// Training uses two optimizer instances over disjoint parameter groups:
// one for the main network weights and one for the spline parameters,
// typically with different learning rates. The MultiStepLR scheduler drives
// both.
//
// Example:
//
//	mainOpt := optim.NewSGD(mainParams, optim.SGDConfig{LR: 0.01, Momentum: 0.9, Nesterov: true}, backend)
//	splineOpt := optim.NewAdam(splineParams, optim.AdamConfig{LR: 0.001}, backend)
//
//	for epoch := 0; epoch < epochs; epoch++ {
//	    // ... forward, backward ...
//	    mainOpt.Step(grads)
//	    splineOpt.Step(grads)
//	    scheduler.Step()
//	}
package optim

import (
	"github.com/rohanarrancherry/DeepSplines/internal/nn"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// Optimizer is the base interface for all optimization algorithms.
type Optimizer interface {
	// Step applies gradient updates to all parameters, reading gradients
	// from the map produced by autodiff.Backward. Parameters absent from
	// the map are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradients. Call before each backward
	// pass to prevent accumulation across iterations.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR updates the learning rate. Used by schedulers.
	SetLR(lr float32)
}

// getGradient retrieves the gradient for a parameter, nil when the
// parameter did not participate in the recorded computation.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor().Raw()]
}
