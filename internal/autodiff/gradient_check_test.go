package autodiff_test

import (
	"math/rand"
	"testing"

	"github.com/rohanarrancherry/DeepSplines/internal/autodiff"
	"github.com/rohanarrancherry/DeepSplines/internal/backend/cpu"
	"github.com/rohanarrancherry/DeepSplines/internal/spline"
	"github.com/rohanarrancherry/DeepSplines/internal/tensor"
)

// splineSum evaluates sum over all elements of the spline activation
// directly from the coefficient slice, for finite-difference comparison.
func splineSum(grid *spline.Grid, coeffs []float32, inputs []float32, channelOf func(int) int) float64 {
	knots := grid.Size()
	var total float64
	for e, x := range inputs {
		seg, frac := grid.Segment(x)
		ci := channelOf(e)*knots + seg
		total += float64(coeffs[ci]*(1-frac) + coeffs[ci+1]*frac)
	}
	return total
}

func TestSplineCoefficientGradient_FiniteDifference(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	grid, err := spline.NewGrid(2, 0.5)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}
	knots := grid.Size()
	channels := 3

	rng := rand.New(rand.NewSource(7))
	coeffsData := make([]float32, channels*knots)
	for i := range coeffsData {
		coeffsData[i] = float32(rng.NormFloat64())
	}

	// Inputs cover the interior and both extrapolation regions.
	inputData := make([]float32, 12*channels)
	for i := range inputData {
		inputData[i] = float32(rng.NormFloat64()) * 2
	}

	coeffs, err := tensor.FromSlice(coeffsData, tensor.Shape{channels, knots}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	input, err := tensor.FromSlice(inputData, tensor.Shape{12, channels}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	out := backend.Spline(input.Raw(), coeffs.Raw(), grid, channels)
	_ = backend.Sum(out)

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
	analytic := dc.AsFloat32()

	// The output is linear in the coefficients, so central differences are
	// exact up to rounding.
	channelOf := func(flat int) int { return flat % channels }
	const h = 1e-2
	for k := range coeffsData {
		perturbed := make([]float32, len(coeffsData))

		copy(perturbed, coeffsData)
		perturbed[k] += h
		plus := splineSum(grid, perturbed, inputData, channelOf)

		copy(perturbed, coeffsData)
		perturbed[k] -= h
		minus := splineSum(grid, perturbed, inputData, channelOf)

		numeric := float32((plus - minus) / (2 * h))
		if !floatEqual(analytic[k], numeric, 1e-3) {
			t.Errorf("coeff %d: analytic %v, numeric %v", k, analytic[k], numeric)
		}
	}
}

func TestSplineInputGradient_FiniteDifference(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	grid, err := spline.NewGrid(1, 0.25)
	if err != nil {
		t.Fatalf("NewGrid: %v", err)
	}

	rng := rand.New(rand.NewSource(11))
	coeffsData := make([]float32, grid.Size())
	for i := range coeffsData {
		coeffsData[i] = float32(rng.NormFloat64())
	}

	// Keep each probe point strictly inside a segment so the finite
	// difference never straddles a kink.
	inputData := []float32{0.1, -0.6, 0.85, -1.5, 1.7}

	coeffs, err := tensor.FromSlice(coeffsData, tensor.Shape{1, grid.Size()}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}
	input, err := tensor.FromSlice(inputData, tensor.Shape{len(inputData), 1}, backend)
	if err != nil {
		t.Fatalf("FromSlice: %v", err)
	}

	out := backend.Spline(input.Raw(), coeffs.Raw(), grid, 1)
	_ = backend.Sum(out)

	seed, err := tensor.NewRaw(tensor.Shape{1}, tensor.Float32, backend.Device())
	if err != nil {
		t.Fatalf("NewRaw: %v", err)
	}
	seed.AsFloat32()[0] = 1

	grads := backend.Tape().Backward(seed, backend)
	di := grads[input.Raw()]
	if di == nil {
		t.Fatal("no gradient reached the input")
	}
	analytic := di.AsFloat32()

	channelOf := func(int) int { return 0 }
	const h = 1e-3
	for e := range inputData {
		perturbed := make([]float32, len(inputData))

		copy(perturbed, inputData)
		perturbed[e] += h
		plus := splineSum(grid, coeffsData, perturbed, channelOf)

		copy(perturbed, inputData)
		perturbed[e] -= h
		minus := splineSum(grid, coeffsData, perturbed, channelOf)

		numeric := float32((plus - minus) / (2 * h))
		if !floatEqual(analytic[e], numeric, 1e-2) {
			t.Errorf("input %d: analytic %v, numeric %v", e, analytic[e], numeric)
		}
	}
}
