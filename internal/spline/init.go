package spline

import "github.com/pkg/errors"

// Init holds initial parameter values for one activation site: the flattened
// coefficient matrix (channels x knots, row-major) and, for the
// explicit-linear variant, the per-channel linear-term slope and bias.
//
// The knot values are chosen so that spline plus linear term reproduce the
// reference function exactly at construction time: coefficient = reference
// value at the knot minus the linear-term contribution there.
type Init struct {
	Coefficients []float32 // len = channels * grid.Size()
	Slopes       []float32 // len = channels; nil unless explicit-linear
	Biases       []float32 // len = channels; nil unless explicit-linear
}

// InitialValues computes initial coefficients and linear-term parameters for
// the given policy.
//
// Policies:
//   - leaky_relu: slope 0.01, bias 0, c(g) = leakyrelu(g, 0.01) - 0.01*g
//   - relu:       slope 0,    bias 0, c(g) = relu(g)
//   - even_odd:   first half of the channels start as an absolute-value-like
//     even function (slope -1, c = |g| + g), the second half as a
//     soft-threshold odd function (slope 1, bias 0.5,
//     c = softshrink(g, 0.5) - g - 0.5)
//
// Without the explicit linear term the coefficients carry the full reference
// function value at each knot and Slopes/Biases are nil.
func InitialValues(init InitName, grid *Grid, channels int, explicitLinear bool) (Init, error) {
	locs := grid.Locations()
	size := len(locs)
	out := Init{Coefficients: make([]float32, channels*size)}
	if explicitLinear {
		out.Slopes = make([]float32, channels)
		out.Biases = make([]float32, channels)
	}

	// reference value and linear split per channel
	var refFn func(ch int, g float32) (ref, slope, bias float32)

	switch init {
	case InitLeakyReLU:
		refFn = func(_ int, g float32) (float32, float32, float32) {
			return leakyReLU(g, 0.01), 0.01, 0
		}
	case InitReLU:
		refFn = func(_ int, g float32) (float32, float32, float32) {
			return relu(g), 0, 0
		}
	case InitEvenOdd:
		half := channels / 2
		refFn = func(ch int, g float32) (float32, float32, float32) {
			if ch < half {
				return abs(g), -1, 0
			}
			return softshrink(g, 0.5), 1, 0.5
		}
	default:
		return Init{}, errors.Wrapf(ErrUnknownInit, "%q", init)
	}

	for ch := 0; ch < channels; ch++ {
		row := out.Coefficients[ch*size : (ch+1)*size]
		for i, g := range locs {
			ref, slope, bias := refFn(ch, g)
			if explicitLinear {
				row[i] = ref - slope*g - bias
				out.Slopes[ch] = slope
				out.Biases[ch] = bias
			} else {
				row[i] = ref
			}
		}
	}

	return out, nil
}

func relu(x float32) float32 {
	if x > 0 {
		return x
	}
	return 0
}

func leakyReLU(x, negativeSlope float32) float32 {
	if x >= 0 {
		return x
	}
	return negativeSlope * x
}

func abs(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// softshrink is the soft-threshold function with threshold lambda.
func softshrink(x, lambda float32) float32 {
	switch {
	case x > lambda:
		return x - lambda
	case x < -lambda:
		return x + lambda
	default:
		return 0
	}
}
