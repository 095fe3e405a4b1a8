package optim

// MultiStepLR decays the learning rate of one or more optimizers by gamma
// at each milestone epoch. Milestones are epoch indices in increasing
// order.
//
//	scheduler := optim.NewMultiStepLR([]int{150, 225}, 0.1, mainOpt, splineOpt)
//	for epoch := 0; epoch < epochs; epoch++ {
//	    trainEpoch(...)
//	    scheduler.Step()
//	}
type MultiStepLR struct {
	milestones []int
	gamma      float32
	optimizers []Optimizer
	epoch      int
}

// NewMultiStepLR creates a scheduler over the given optimizers.
func NewMultiStepLR(milestones []int, gamma float32, optimizers ...Optimizer) *MultiStepLR {
	if gamma == 0 {
		gamma = 0.1
	}
	return &MultiStepLR{
		milestones: milestones,
		gamma:      gamma,
		optimizers: optimizers,
	}
}

// Step advances the epoch counter and applies the decay when a milestone is
// reached.
func (s *MultiStepLR) Step() {
	s.epoch++
	for _, m := range s.milestones {
		if s.epoch == m {
			for _, opt := range s.optimizers {
				opt.SetLR(opt.GetLR() * s.gamma)
			}
			return
		}
	}
}

// Epoch returns the number of completed epochs.
func (s *MultiStepLR) Epoch() int {
	return s.epoch
}
