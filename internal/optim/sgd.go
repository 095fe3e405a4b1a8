package optim

import (
	"github.com/rohanarrancherry/DeepSplines/internal/nn"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum and
// Nesterov acceleration.
//
// Update rule with momentum:
//
//	velocity = momentum * velocity + gradient
//	param -= lr * velocity
//
// With Nesterov the update uses the look-ahead gradient instead:
//
//	param -= lr * (gradient + momentum * velocity)
type SGD[B tensor.Backend] struct {
	params     []*nn.Parameter[B]
	lr         float32
	momentum   float32
	nesterov   bool
	velocities map[*nn.Parameter[B]][]float32
	backend    B
}

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig struct {
	LR       float32 // learning rate (default 0.01)
	Momentum float32 // momentum factor in [0, 1) (default 0)
	Nesterov bool    // Nesterov acceleration, requires Momentum > 0
}

// NewSGD creates a new SGD optimizer over the given parameter group.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD[B]{
		params:     params,
		lr:         config.LR,
		momentum:   config.Momentum,
		nesterov:   config.Nesterov && config.Momentum > 0,
		velocities: make(map[*nn.Parameter[B]][]float32),
		backend:    backend,
	}
}

// Step performs a single optimization step. Parameters with no gradient in
// the map are skipped.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range s.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}

		gradData := grad.AsFloat32()
		paramData := param.Tensor().Raw().AsFloat32()

		if s.momentum == 0 {
			for i := range paramData {
				paramData[i] -= s.lr * gradData[i]
			}
			continue
		}

		velocity, ok := s.velocities[param]
		if !ok {
			velocity = make([]float32, len(paramData))
			s.velocities[param] = velocity
		}

		for i := range paramData {
			velocity[i] = s.momentum*velocity[i] + gradData[i]
			if s.nesterov {
				paramData[i] -= s.lr * (gradData[i] + s.momentum*velocity[i])
			} else {
				paramData[i] -= s.lr * velocity[i]
			}
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD[B]) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (s *SGD[B]) GetLR() float32 {
	return s.lr
}

// SetLR updates the learning rate.
func (s *SGD[B]) SetLR(lr float32) {
	s.lr = lr
}
