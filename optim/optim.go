// Copyright 2026 The DeepSplines Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides optimization algorithms and learning rate
// schedules.
//
// DeepSplines training runs two optimizers over disjoint parameter groups,
// main network weights and spline parameters:
//
//	mainParams, _ := manager.ParametersMain(model)
//	splineParams, _ := manager.ParametersSpline()
//
//	mainOpt := optim.NewSGD(mainParams, optim.SGDConfig{LR: 0.01, Momentum: 0.9, Nesterov: true}, backend)
//	splineOpt := optim.NewAdam(splineParams, optim.AdamConfig{LR: 0.001}, backend)
//	scheduler := optim.NewMultiStepLR([]int{150, 225}, 0.1, mainOpt, splineOpt)
package optim

import (
	"github.com/rohanarrancherry/DeepSplines/internal/nn"
	"github.com/rohanarrancherry/DeepSplines/internal/optim"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// Optimizer is the common interface for all optimizers.
type Optimizer = optim.Optimizer

// SGD is the stochastic gradient descent optimizer with optional momentum
// and Nesterov acceleration.
type SGD[B tensor.Backend] = optim.SGD[B]

// SGDConfig holds configuration for the SGD optimizer.
type SGDConfig = optim.SGDConfig

// NewSGD creates a new SGD optimizer.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	return optim.NewSGD(params, config, backend)
}

// Adam is the Adam optimizer.
type Adam[B tensor.Backend] = optim.Adam[B]

// AdamConfig holds configuration for the Adam optimizer.
type AdamConfig = optim.AdamConfig

// NewAdam creates a new Adam optimizer.
func NewAdam[B tensor.Backend](params []*nn.Parameter[B], config AdamConfig, backend B) *Adam[B] {
	return optim.NewAdam(params, config, backend)
}

// MultiStepLR decays the learning rate of one or more optimizers by gamma
// at each milestone epoch.
type MultiStepLR = optim.MultiStepLR

// NewMultiStepLR creates a scheduler over the given optimizers.
func NewMultiStepLR(milestones []int, gamma float32, optimizers ...Optimizer) *MultiStepLR {
	return optim.NewMultiStepLR(milestones, gamma, optimizers...)
}
