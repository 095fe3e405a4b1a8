package nn

import (
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/rohanarrancherry/DeepSplines/internal/autodiff"
	"github.com/rohanarrancherry/DeepSplines/internal/spline"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// ErrNotRegistered is returned when a manager operation requires registered
// spline activations and none exist.
var ErrNotRegistered = errors.New("nn: no spline activations registered")

// weightDecayBackend is implemented by backends that record the L2 penalty
// on the tape.
type weightDecayBackend interface {
	SumSquares(t *tensor.RawTensor, weight float64) *tensor.RawTensor
}

// ActivationManager tracks the spline activation layers of a model. It
// partitions parameters into the main network weights (explicit linear
// terms included) and the spline coefficient matrices (the two groups
// train with separate optimizers), aggregates
// the TV/BV regularization penalties, drives the train/eval lifecycle and
// runs the post-training sparsification pass.
type ActivationManager[B tensor.Backend] struct {
	backend     B
	activations []*SplineActivation[B]
}

// NewActivationManager creates an empty manager.
func NewActivationManager[B tensor.Backend](backend B) *ActivationManager[B] {
	return &ActivationManager[B]{backend: backend}
}

// Register adds spline activation layers to the manager. Layers must be
// registered before parameter partitioning or sparsification.
func (m *ActivationManager[B]) Register(acts ...*SplineActivation[B]) {
	m.activations = append(m.activations, acts...)
}

// Activations returns the registered layers.
func (m *ActivationManager[B]) Activations() []*SplineActivation[B] {
	return m.activations
}

// ParametersSpline returns the spline parameter group: the coefficient
// matrix of every registered layer. The explicit linear terms (slope and
// bias) count as main network parameters and stay in the other group.
func (m *ActivationManager[B]) ParametersSpline() ([]*Parameter[B], error) {
	if len(m.activations) == 0 {
		return nil, ErrNotRegistered
	}

	var params []*Parameter[B]
	for _, act := range m.activations {
		params = append(params, act.Coefficients())
	}
	return params, nil
}

// ParametersMain returns the model's parameters minus the spline
// coefficients: the weights and biases of the linear and convolutional
// layers plus the explicit linear terms of the spline activations. The two
// groups typically train with different learning rates and only the main
// group gets weight decay.
func (m *ActivationManager[B]) ParametersMain(model Module[B]) ([]*Parameter[B], error) {
	splineParams, err := m.ParametersSpline()
	if err != nil {
		return nil, err
	}

	isSpline := make(map[*Parameter[B]]bool, len(splineParams))
	for _, p := range splineParams {
		isSpline[p] = true
	}

	var params []*Parameter[B]
	for _, p := range model.Parameters() {
		if !isSpline[p] {
			params = append(params, p)
		}
	}
	return params, nil
}

// TVBV aggregates the regularization penalties of all registered layers:
// tvWeight times the total variation plus bvWeight times the bounded
// variation of every coefficient matrix. It returns the weighted penalty
// tensor (recorded on the tape when the backend supports it) and the total
// unweighted value, which training loops log to monitor spline sparsity.
func (m *ActivationManager[B]) TVBV(tvWeight, bvWeight float64) (*tensor.Tensor[float32, B], float64, error) {
	if len(m.activations) == 0 {
		return nil, 0, ErrNotRegistered
	}

	var total *tensor.Tensor[float32, B]
	var unweighted float64

	add := func(t *tensor.Tensor[float32, B], u float64) {
		unweighted += u
		if total == nil {
			total = t
		} else {
			total = total.Add(t)
		}
	}

	for _, act := range m.activations {
		if tvWeight != 0 {
			t, u := act.TV(tvWeight)
			add(t, u)
		}
		if bvWeight != 0 {
			t, u := act.BV(bvWeight)
			add(t, u)
		}
	}

	if total == nil {
		// Both weights zero: contribute nothing to the loss.
		total = Zeros(tensor.Shape{1}, m.backend)
	}
	return total, unweighted, nil
}

// WeightDecay returns weight times the summed squared L2 norm of the main
// network parameters. Spline coefficients are excluded: decaying them
// would pull the activation functions toward zero rather than toward
// simplicity, which is the TV/BV terms' job.
func (m *ActivationManager[B]) WeightDecay(model Module[B], weight float64) (*tensor.Tensor[float32, B], error) {
	mainParams, err := m.ParametersMain(model)
	if err != nil {
		return nil, err
	}

	adBackend, recorded := any(m.backend).(weightDecayBackend)

	var total *tensor.Tensor[float32, B]
	for _, p := range mainParams {
		var t *tensor.Tensor[float32, B]
		if recorded {
			t = tensor.New[float32, B](adBackend.SumSquares(p.Tensor().Raw(), weight), m.backend)
		} else {
			var sum float64
			for _, v := range p.Tensor().Raw().AsFloat32() {
				sum += float64(v) * float64(v)
			}
			raw, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, m.backend.Device())
			if err != nil {
				return nil, err
			}
			raw.AsFloat32()[0] = float32(weight * sum)
			t = tensor.New[float32, B](raw, m.backend)
		}

		if total == nil {
			total = t
		} else {
			total = total.Add(t)
		}
	}

	if total == nil {
		total = Zeros(tensor.Shape{1}, m.backend)
	}
	return total, nil
}

// Train moves all registered layers to the training state. Fails if any
// layer has been sparsified; sparsification is terminal.
func (m *ActivationManager[B]) Train() error {
	for _, act := range m.activations {
		if err := act.Train(); err != nil {
			return err
		}
	}
	return nil
}

// Eval moves all registered layers to the evaluating state.
func (m *ActivationManager[B]) Eval() {
	for _, act := range m.activations {
		act.Eval()
	}
}

// SparsifyActivations runs the knot-dropping pass over every registered
// layer and returns the total number of knots removed.
//
// Degenerate calls are no-ops with a warning rather than errors: a
// non-positive threshold, a live gradient tape, or layers that are not in
// the evaluating state.
func (m *ActivationManager[B]) SparsifyActivations(threshold float32) (int, error) {
	if len(m.activations) == 0 {
		return 0, ErrNotRegistered
	}
	if threshold <= 0 {
		klog.Warningf("sparsify: non-positive threshold %v, nothing to do", threshold)
		return 0, nil
	}
	if tb, ok := any(m.backend).(interface{ GetTape() *autodiff.GradientTape }); ok && tb.GetTape().IsRecording() {
		klog.Warning("sparsify: gradient tape is recording, skipping")
		return 0, nil
	}

	dropped := 0
	for i, act := range m.activations {
		result, err := act.Sparsify(threshold)
		if err != nil {
			if errors.Is(err, spline.ErrDegenerate) {
				klog.Warningf("sparsify: skipping layer %d (%s): %v", i, act.State(), err)
				continue
			}
			return dropped, err
		}
		klog.V(1).Infof("sparsify: layer %d dropped %d knots, %d remain",
			i, result.Dropped, result.Grid.Size())
		dropped += result.Dropped
	}

	return dropped, nil
}
