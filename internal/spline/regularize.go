package spline

// TV computes the total-variation penalty of a coefficient matrix: the L1
// norm of first differences along the knot axis, summed over channels. It
// returns the unweighted value together with the subgradient with respect
// to each coefficient, both computed in a single pass.
//
// The value only depends on within-channel adjacent differences, so it is
// invariant to channel reordering and scales linearly with the coefficients.
func TV(coeffs []float32, channels, knots int) (float64, []float32) {
	var total float64
	grad := make([]float32, len(coeffs))

	for ch := 0; ch < channels; ch++ {
		row := coeffs[ch*knots : (ch+1)*knots]
		g := grad[ch*knots : (ch+1)*knots]
		for i := 0; i+1 < knots; i++ {
			d := row[i+1] - row[i]
			s := sign(d)
			total += float64(abs(d))
			g[i+1] += s
			g[i] -= s
		}
	}

	return total, grad
}

// BV computes the bounded-variation (curvature) penalty: the L1 norm of
// second differences along the knot axis, summed over channels, with its
// subgradient. A zero value means the function is a single linear piece.
func BV(coeffs []float32, channels, knots int) (float64, []float32) {
	var total float64
	grad := make([]float32, len(coeffs))

	for ch := 0; ch < channels; ch++ {
		row := coeffs[ch*knots : (ch+1)*knots]
		g := grad[ch*knots : (ch+1)*knots]
		for i := 1; i+1 < knots; i++ {
			d := row[i+1] - 2*row[i] + row[i-1]
			s := sign(d)
			total += float64(abs(d))
			g[i+1] += s
			g[i] -= 2 * s
			g[i-1] += s
		}
	}

	return total, grad
}

func sign(x float32) float32 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
