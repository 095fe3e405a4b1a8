package autodiff_test

import (
	"testing"

	"github.com/rohanarrancherry/DeepSplines/internal/autodiff"
	"github.com/rohanarrancherry/DeepSplines/internal/backend/cpu"
	"github.com/rohanarrancherry/DeepSplines/internal/spline"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

func floatEqual(a, b, eps float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < eps
}

func TestBackward_Square(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{2, 3}, tensor.Shape{2}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	y := x.Mul(x)

	grads := autodiff.Backward(y, backend)
	dx := grads[x.Raw()]
	if dx == nil {
		t.Fatal("no gradient for x")
	}

	// d(x*x)/dx = 2x
	want := []float32{4, 6}
	for i, w := range want {
		if !floatEqual(dx.AsFloat32()[i], w, 1e-6) {
			t.Errorf("dx[%d]: got %v, want %v", i, dx.AsFloat32()[i], w)
		}
	}
}

func TestBackward_Accumulation(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	// y = x*x + x: x feeds two operations, gradients must accumulate.
	y := x.Mul(x).Add(x)

	grads := autodiff.Backward(y, backend)
	dx := grads[x.Raw()]

	want := []float32{3, 5} // 2x + 1
	for i, w := range want {
		if !floatEqual(dx.AsFloat32()[i], w, 1e-6) {
			t.Errorf("dx[%d]: got %v, want %v", i, dx.AsFloat32()[i], w)
		}
	}
}

func TestTape_RecordingControl(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	x, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	// Nothing recorded while the tape is stopped.
	_ = x.Mul(x)
	if tape.NumOps() != 0 {
		t.Errorf("stopped tape recorded %d ops", tape.NumOps())
	}

	tape.StartRecording()
	_ = x.Mul(x)
	if tape.NumOps() != 1 {
		t.Errorf("recording tape has %d ops, want 1", tape.NumOps())
	}

	// Clear keeps the recording state.
	tape.Clear()
	if tape.NumOps() != 0 || !tape.IsRecording() {
		t.Errorf("after Clear: %d ops, recording=%v", tape.NumOps(), tape.IsRecording())
	}
}

func TestBackward_SplineToCoefficients(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	grid, err := spline.NewGrid(1, 0.5)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}

	coeffs, err := tensor.FromSlice([]float32{0, 0, 0, 0.5, 1}, tensor.Shape{1, 5}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	input, err := tensor.FromSlice([]float32{0.25, -0.75}, tensor.Shape{2, 1}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	out := backend.Spline(input.Raw(), coeffs.Raw(), grid, 1)
	loss := backend.Sum(out)
	if !floatEqual(loss.AsFloat32()[0], 0.5, 1e-6) {
		t.Errorf("loss: got %v, want 0.5", loss.AsFloat32()[0])
	}

	seed, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, backend.Device())
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	seed.AsFloat32()[0] = 1

	grads := backend.Tape().Backward(seed, backend)

	dc := grads[coeffs.Raw()]
	if dc == nil {
		t.Fatal("no gradient reached the coefficients")
	}

	// x=0.25 scatters (0.5, 0.5) into (c2, c3); x=-0.75 scatters into (c0, c1).
	want := []float32{0.5, 0.5, 0.5, 0.5, 0}
	for i, w := range want {
		if !floatEqual(dc.AsFloat32()[i], w, 1e-6) {
			t.Errorf("dcoeffs[%d]: got %v, want %v", i, dc.AsFloat32()[i], w)
		}
	}

	di := grads[input.Raw()]
	if di == nil {
		t.Fatal("no gradient reached the input")
	}
	wantInput := []float32{1, 0} // segment slopes at 0.25 and -0.75
	for i, w := range wantInput {
		if !floatEqual(di.AsFloat32()[i], w, 1e-6) {
			t.Errorf("dinput[%d]: got %v, want %v", i, di.AsFloat32()[i], w)
		}
	}
}

func TestBackward_TVReachesCoefficients(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	coeffs, err := tensor.FromSlice([]float32{0, 1, 3}, tensor.Shape{1, 3}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	reg, unweighted := backend.TV(coeffs.Raw(), 1, 0.1)
	if unweighted != 3 {
		t.Errorf("unweighted TV: got %v, want 3", unweighted)
	}
	if !floatEqual(reg.AsFloat32()[0], 0.3, 1e-6) {
		t.Errorf("weighted TV: got %v, want 0.3", reg.AsFloat32()[0])
	}

	seed, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, backend.Device())
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	seed.AsFloat32()[0] = 1

	grads := backend.Tape().Backward(seed, backend)
	dc := grads[coeffs.Raw()]
	if dc == nil {
		t.Fatal("no gradient reached the coefficients")
	}

	want := []float32{-0.1, 0, 0.1}
	for i, w := range want {
		if !floatEqual(dc.AsFloat32()[i], w, 1e-6) {
			t.Errorf("dcoeffs[%d]: got %v, want %v", i, dc.AsFloat32()[i], w)
		}
	}
}

func TestBackward_CrossEntropy(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	logits, err := tensor.FromSlice([]float32{2, 0, 0, 2}, tensor.Shape{2, 2}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	targets, err := tensor.FromSlice([]int64{0, 1}, tensor.Shape{2}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	loss := backend.CrossEntropy(logits.Raw(), targets.Raw())

	// Both rows are confidently correct: loss = ln(1 + e^-2).
	if !floatEqual(loss.AsFloat32()[0], 0.126928, 1e-5) {
		t.Errorf("loss: got %v, want 0.126928", loss.AsFloat32()[0])
	}

	seed, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, backend.Device())
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	seed.AsFloat32()[0] = 1

	grads := backend.Tape().Backward(seed, backend)
	dl := grads[logits.Raw()]
	if dl == nil {
		t.Fatal("no gradient reached the logits")
	}

	// softmax([2, 0]) = [0.8808, 0.1192]; (p - onehot) / 2 per row.
	want := []float32{-0.059602, 0.059602, 0.059602, -0.059602}
	for i, w := range want {
		if !floatEqual(dl.AsFloat32()[i], w, 1e-5) {
			t.Errorf("dlogits[%d]: got %v, want %v", i, dl.AsFloat32()[i], w)
		}
	}

	if _, ok := grads[targets.Raw()]; ok {
		t.Error("integer targets should not receive a gradient")
	}
}
