package optim_test

import (
	"math"
	"testing"

	"github.com/rohanarrancherry/DeepSplines/internal/backend/cpu"
	"github.com/rohanarrancherry/DeepSplines/internal/nn"
	"github.com/rohanarrancherry/DeepSplines/internal/optim"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

func floatEqual(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < eps
}

func newParam(t *testing.T, backend *cpu.CPUBackend, data []float32) *nn.Parameter[*cpu.CPUBackend] {
	t.Helper()
	tens, err := tensor.FromSlice(data, tensor.Shape{len(data)}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	return nn.NewParameter("test.param", tens)
}

func gradFor(t *testing.T, param *nn.Parameter[*cpu.CPUBackend], data []float32) map[*tensor.RawTensor]*tensor.RawTensor {
	t.Helper()
	grad, err := tensor.NewRaw(tensor.Shape{len(data)}, tensor.Float32, tensor.CPU)
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	copy(grad.AsFloat32(), data)
	return map[*tensor.RawTensor]*tensor.RawTensor{param.Tensor().Raw(): grad}
}

func TestSGD_Simple(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, []float32{1, 2, 3})
	opt := optim.NewSGD([]*nn.Parameter[*cpu.CPUBackend]{param}, optim.SGDConfig{LR: 0.1}, backend)

	opt.Step(gradFor(t, param, []float32{1, 1, 1}))

	want := []float32{0.9, 1.9, 2.9}
	got := param.Tensor().Raw().AsFloat32()
	for i := range want {
		if !floatEqual(got[i], want[i], 1e-6) {
			t.Errorf("param[%d]: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSGD_Momentum(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, []float32{1})
	opt := optim.NewSGD([]*nn.Parameter[*cpu.CPUBackend]{param}, optim.SGDConfig{
		LR:       0.1,
		Momentum: 0.9,
	}, backend)

	// Step 1: velocity = 1, param = 1 - 0.1*1 = 0.9
	opt.Step(gradFor(t, param, []float32{1}))
	got := param.Tensor().Raw().AsFloat32()
	if !floatEqual(got[0], 0.9, 1e-6) {
		t.Errorf("after step 1: got %v, want 0.9", got[0])
	}

	// Step 2: velocity = 0.9 + 1 = 1.9, param = 0.9 - 0.19 = 0.71
	opt.Step(gradFor(t, param, []float32{1}))
	if !floatEqual(got[0], 0.71, 1e-6) {
		t.Errorf("after step 2: got %v, want 0.71", got[0])
	}
}

func TestSGD_Nesterov(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, []float32{1})
	opt := optim.NewSGD([]*nn.Parameter[*cpu.CPUBackend]{param}, optim.SGDConfig{
		LR:       0.1,
		Momentum: 0.9,
		Nesterov: true,
	}, backend)

	// velocity = 1, update = grad + momentum*velocity = 1.9
	opt.Step(gradFor(t, param, []float32{1}))
	got := param.Tensor().Raw().AsFloat32()
	if !floatEqual(got[0], 1-0.1*1.9, 1e-6) {
		t.Errorf("after step 1: got %v, want %v", got[0], 1-0.1*1.9)
	}
}

func TestSGD_MissingGradientSkipped(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, []float32{1})
	other := newParam(t, backend, []float32{5})
	opt := optim.NewSGD([]*nn.Parameter[*cpu.CPUBackend]{param, other}, optim.SGDConfig{LR: 0.1}, backend)

	// Only param has a gradient; other must stay untouched.
	opt.Step(gradFor(t, param, []float32{1}))

	if got := other.Tensor().Raw().AsFloat32()[0]; got != 5 {
		t.Errorf("parameter without gradient moved: got %v, want 5", got)
	}
}

func TestAdam_FirstStep(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, []float32{1})
	opt := optim.NewAdam([]*nn.Parameter[*cpu.CPUBackend]{param}, optim.AdamConfig{LR: 0.001}, backend)

	// With bias correction the first step moves by almost exactly lr,
	// regardless of the gradient magnitude.
	opt.Step(gradFor(t, param, []float32{10}))

	got := param.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(got, 1-0.001, 1e-5) {
		t.Errorf("after step 1: got %v, want %v", got, 1-0.001)
	}
	if opt.Timestep() != 1 {
		t.Errorf("timestep: got %d, want 1", opt.Timestep())
	}
}

func TestAdam_MatchesReference(t *testing.T) {
	backend := cpu.New()
	param := newParam(t, backend, []float32{1})
	opt := optim.NewAdam([]*nn.Parameter[*cpu.CPUBackend]{param}, optim.AdamConfig{LR: 0.1}, backend)

	// Reference computation of two steps with a constant gradient of 2.
	var m, v float64
	ref := 1.0
	for step := 1; step <= 2; step++ {
		g := 2.0
		m = 0.9*m + 0.1*g
		v = 0.999*v + 0.001*g*g
		mHat := m / (1 - math.Pow(0.9, float64(step)))
		vHat := v / (1 - math.Pow(0.999, float64(step)))
		ref -= 0.1 * mHat / (math.Sqrt(vHat) + 1e-8)

		opt.Step(gradFor(t, param, []float32{2}))
	}

	got := param.Tensor().Raw().AsFloat32()[0]
	if !floatEqual(got, float32(ref), 1e-4) {
		t.Errorf("after 2 steps: got %v, want %v", got, ref)
	}
}

func TestMultiStepLR(t *testing.T) {
	backend := cpu.New()
	mainParam := newParam(t, backend, []float32{1})
	splineParam := newParam(t, backend, []float32{1})

	mainOpt := optim.NewSGD([]*nn.Parameter[*cpu.CPUBackend]{mainParam}, optim.SGDConfig{LR: 1}, backend)
	splineOpt := optim.NewAdam([]*nn.Parameter[*cpu.CPUBackend]{splineParam}, optim.AdamConfig{LR: 0.5}, backend)

	scheduler := optim.NewMultiStepLR([]int{2, 4}, 0.1, mainOpt, splineOpt)

	lrs := make([]float32, 0, 5)
	for epoch := 0; epoch < 5; epoch++ {
		scheduler.Step()
		lrs = append(lrs, mainOpt.GetLR())
	}

	want := []float32{1, 0.1, 0.1, 0.01, 0.01}
	for i := range want {
		if !floatEqual(lrs[i], want[i], 1e-7) {
			t.Errorf("epoch %d: lr %v, want %v", i+1, lrs[i], want[i])
		}
	}

	// Both optimizer groups decay together.
	if !floatEqual(splineOpt.GetLR(), 0.005, 1e-7) {
		t.Errorf("spline lr: got %v, want 0.005", splineOpt.GetLR())
	}
	if scheduler.Epoch() != 5 {
		t.Errorf("epoch count: got %d, want 5", scheduler.Epoch())
	}
}
